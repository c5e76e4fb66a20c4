package mjpeg

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/camstack/camd/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub hands out one fixed frame per acquire and counts the
// acquire/release balance.
type stub struct {
	data     []byte
	fails    int // transient failures before each success
	failed   int
	acquired int
	released int
}

func (s *stub) Acquire() (*frame.Frame, error) {
	if s.failed < s.fails {
		s.failed++
		return nil, frame.ErrNotReady
	}
	s.failed = 0
	s.acquired++
	return frame.New(s.data, frame.EncodingJPEG, func([]byte) { s.released++ }), nil
}

func (s *stub) Close() error { return nil }

// collectFrame drives the state machine until one frame completes and
// returns everything it produced.
func collectFrame(t *testing.T, s *Stream, maxLen int) []byte {
	t.Helper()

	buf := make([]byte, maxLen)
	var out bytes.Buffer

	for i := 0; i < 1_000_000; i++ {
		n, ev := s.Next(buf)
		out.Write(buf[:n])
		if ev == EventFrameEnd {
			return out.Bytes()
		}
	}
	t.Fatal("frame never completed")
	return nil
}

// TestPartialWriteIdempotence: chunk sizes 1, 7 and 4096 must all
// produce the identical header+payload byte sequence.
func TestPartialWriteIdempotence(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 10000)

	want := fmt.Sprintf(
		"\r\n--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		Boundary, len(data))

	for _, maxLen := range []int{1, 7, 4096} {
		s := NewStream(&stub{data: data})
		got := collectFrame(t, s, maxLen)

		require.Equal(t, len(want)+len(data), len(got), "maxLen=%d", maxLen)
		assert.Equal(t, want, string(got[:len(want)]), "maxLen=%d", maxLen)
		assert.Equal(t, data, got[len(want):], "maxLen=%d", maxLen)
	}
}

func TestHeaderBeforeBody(t *testing.T) {
	s := NewStream(&stub{data: []byte("xyz")})

	// first call emits header bytes only, even with room to spare
	buf := make([]byte, 4096)
	n, ev := s.Next(buf)
	assert.Equal(t, EventData, ev)
	assert.True(t, bytes.HasPrefix(buf[:n], []byte("\r\n--"+Boundary)))
	assert.False(t, bytes.Contains(buf[:n], []byte("xyz")))

	n, ev = s.Next(buf)
	assert.Equal(t, EventFrameEnd, ev)
	assert.Equal(t, "xyz", string(buf[:n]))
}

func TestFrameOwnership(t *testing.T) {
	src := &stub{data: bytes.Repeat([]byte{1}, 5000)}
	s := NewStream(src)

	for i := 0; i < 3; i++ {
		collectFrame(t, s, 512)
	}

	assert.Equal(t, 3, src.acquired)
	assert.Equal(t, 3, src.released, "every acquired frame must be released")
}

func TestCaptureFailureCooldown(t *testing.T) {
	src := &stub{data: []byte("x"), fails: frame.FailureThreshold + 1}
	s := NewStream(src)

	buf := make([]byte, 64)
	for i := 0; i < frame.FailureThreshold; i++ {
		n, ev := s.Next(buf)
		assert.Equal(t, 0, n)
		assert.Equal(t, EventNone, ev)
	}

	// failure above the threshold asks the caller to cool down
	n, ev := s.Next(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, EventCooldown, ev)

	// next call succeeds and starts the header
	_, ev = s.Next(buf)
	assert.Equal(t, EventData, ev)
}

func TestCloseReleasesHeldFrame(t *testing.T) {
	src := &stub{data: bytes.Repeat([]byte{2}, 5000)}
	s := NewStream(src)

	// pull the header and a bit of body, leaving the frame in flight
	buf := make([]byte, 128)
	s.Next(buf)
	s.Next(buf)

	require.Equal(t, 1, src.acquired)
	require.Equal(t, 0, src.released)

	s.Close()
	assert.Equal(t, 1, src.released, "disconnect must release the in-flight frame")
}
