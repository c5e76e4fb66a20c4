// Package frame owns the frame buffer lifecycle: a Source hands out
// exclusively-owned frames, every frame is released exactly once, and
// callers that hit repeated capture failures back off instead of spinning.
package frame

import (
	"errors"
	"sync/atomic"
	"time"
)

const (
	EncodingJPEG = "jpeg"
	EncodingRaw  = "raw"
)

// ErrNotReady - transient capture failure (sensor busy, DMA not ready).
// Callers skip the tick and retry, they never treat it as fatal.
var ErrNotReady = errors.New("frame: capture not ready")

// Frame is one captured image. The holder owns it exclusively from
// Acquire until Release. Release consumes the frame: the data slice is
// detached, so a second Release (or use after release) can't touch the
// recycled buffer.
type Frame struct {
	data     []byte
	encoding string
	release  func([]byte)
}

func New(data []byte, encoding string, release func([]byte)) *Frame {
	return &Frame{data: data, encoding: encoding, release: release}
}

func (f *Frame) Bytes() []byte    { return f.data }
func (f *Frame) Len() int         { return len(f.data) }
func (f *Frame) Encoding() string { return f.encoding }

// Release returns the buffer to its source. Safe to call on an already
// released frame - it becomes a no-op because the data was detached.
func (f *Frame) Release() {
	if f.data == nil {
		return
	}
	data := f.data
	f.data = nil
	if f.release != nil {
		f.release(data)
	}
}

// Released reports whether the frame was already consumed.
func (f *Frame) Released() bool { return f.data == nil }

// Source produces frames on demand. Acquire may fail transiently with
// ErrNotReady. At most one unreleased frame per dispatch context.
// Implementations must allow concurrent Acquire: the HTTP transports
// share one source across all client handler goroutines.
type Source interface {
	Acquire() (*Frame, error)
	Close() error
}

// SourceFunc adapts a capture function to the Source interface.
type SourceFunc func() (*Frame, error)

func (f SourceFunc) Acquire() (*Frame, error) { return f() }
func (f SourceFunc) Close() error             { return nil }

const (
	// FailureThreshold - consecutive capture failures before cooldown.
	FailureThreshold = 5
	// Cooldown - delay inserted after FailureThreshold failures.
	Cooldown = 100 * time.Millisecond
)

// FailureGate counts consecutive capture failures. After the threshold
// it tells the caller to cool down and resets, matching the
// skip-and-retry policy of every video transport.
type FailureGate struct {
	fails int
}

// Failed records one failure and reports whether the caller should
// sleep for Cooldown before retrying.
func (g *FailureGate) Failed() bool {
	if g.fails++; g.fails > FailureThreshold {
		g.fails = 0
		return true
	}
	return false
}

// OK resets the counter after a successful capture.
func (g *FailureGate) OK() { g.fails = 0 }

// Counter tracks outstanding frames for a Source. Sources embed it so
// tests can assert the acquire/release balance.
type Counter struct {
	outstanding int32
	acquired    uint64
}

func (c *Counter) acquire() {
	atomic.AddInt32(&c.outstanding, 1)
	atomic.AddUint64(&c.acquired, 1)
}

func (c *Counter) released() { atomic.AddInt32(&c.outstanding, -1) }

// Outstanding returns the number of acquired but not yet released frames.
func (c *Counter) Outstanding() int { return int(atomic.LoadInt32(&c.outstanding)) }

// Acquired returns the total number of successful acquisitions.
func (c *Counter) Acquired() uint64 { return atomic.LoadUint64(&c.acquired) }
