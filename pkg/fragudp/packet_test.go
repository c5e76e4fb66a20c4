package fragudp

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		FrameNumber:  0xA1B2C3D4,
		PacketNumber: 7,
		TotalPackets: 9,
		FrameSize:    12345,
		PayloadSize:  3,
	}

	pkt := make([]byte, HeaderSize+3)
	h.Marshal(pkt)
	copy(pkt[HeaderSize:], "abc")

	got, payload, err := Unmarshal(pkt)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.Equal(t, []byte("abc"), payload)
}

func TestUnmarshalShort(t *testing.T) {
	_, _, err := Unmarshal(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestTotalPackets(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{size: 1, want: 1},
		{size: 1400, want: 1},
		{size: 1401, want: 2},
		{size: 2800, want: 2},
		{size: 100000, want: 72},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, TotalPackets(tc.size), "size=%d", tc.size)
	}
}

// TestSplitReassemble checks the core wire property: concatenating the
// fragments' payloads in packet order reconstructs the frame exactly.
func TestSplitReassemble(t *testing.T) {
	for _, size := range []int{1, 1399, 1400, 1401, 3*1400 + 17, 50000} {
		frame := make([]byte, size)
		_, _ = rand.Read(frame)

		var frag Fragmenter
		var got bytes.Buffer
		var count int

		err := frag.Split(frame, func(pkt []byte) error {
			h, payload, err := Unmarshal(pkt)
			require.NoError(t, err)

			assert.Equal(t, uint16(count), h.PacketNumber)
			assert.Equal(t, uint16(TotalPackets(size)), h.TotalPackets)
			assert.Equal(t, uint32(size), h.FrameSize)
			assert.LessOrEqual(t, len(payload), MaxPayload)

			got.Write(payload)
			count++
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, TotalPackets(size), count, "size=%d", size)
		assert.Equal(t, frame, got.Bytes(), "size=%d", size)
	}
}

func TestFrameNumberIncrements(t *testing.T) {
	var frag Fragmenter
	frame := make([]byte, 10)

	for i := 1; i <= 3; i++ {
		var got uint32
		err := frag.Split(frame, func(pkt []byte) error {
			h, _, err := Unmarshal(pkt)
			got = h.FrameNumber
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(i), got)
	}
}
