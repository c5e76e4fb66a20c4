// Package mjpeg produces a multipart/x-mixed-replace MJPEG stream as
// an incremental state machine: every call emits at most one bounded
// chunk, so a slow client never pins the producer inside one call.
package mjpeg

import (
	"fmt"

	"github.com/camstack/camd/pkg/frame"
)

// Boundary separates frames in the multipart stream. Fixed token,
// clients key on it from the Content-Type header.
const Boundary = "123456789000000000000987654321"

// ContentType for the long-lived stream response.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// headerMax bounds the per-frame part header. A header that does not
// fit abandons the frame instead of crashing the stream.
const headerMax = 128

type state byte

const (
	stateAwaitingFrame state = iota
	stateSendingHeader
	stateSendingBody
)

// Event tells the dispatch loop what one Next call produced.
type Event byte

const (
	// EventNone - nothing produced, transient capture failure.
	EventNone Event = iota
	// EventCooldown - capture failed repeatedly, sleep frame.Cooldown.
	EventCooldown
	// EventData - n bytes of header or body produced.
	EventData
	// EventFrameEnd - n bytes produced and the frame is complete.
	EventFrameEnd
)

// Stream carries the per-connection MJPEG state across repeated
// bounded writes. Not safe for concurrent use: one Stream per client
// connection, driven by that connection's writer.
type Stream struct {
	src  frame.Source
	gate frame.FailureGate

	state      state
	cur        *frame.Frame
	offset     int
	header     [headerMax]byte
	headerLen  int
	headerSent int
}

func NewStream(src frame.Source) *Stream {
	return &Stream{src: src}
}

// Next fills buf with the next chunk of the stream and reports what
// happened. At most one phase (header or body) is advanced per call;
// body bytes never start before the header is fully flushed.
func (s *Stream) Next(buf []byte) (n int, ev Event) {
	if s.state == stateAwaitingFrame {
		f, err := s.src.Acquire()
		if err != nil {
			if s.gate.Failed() {
				return 0, EventCooldown
			}
			return 0, EventNone
		}
		s.gate.OK()

		s.cur = f
		s.offset = 0
		s.headerSent = 0
		s.headerLen = copy(s.header[:], fmt.Sprintf(
			"\r\n--%s\r\nContent-Type: image/%s\r\nContent-Length: %d\r\n\r\n",
			Boundary, f.Encoding(), f.Len()))
		if s.headerLen == headerMax {
			// header truncated, drop this frame and keep the stream alive
			s.reset()
			return 0, EventNone
		}
		s.state = stateSendingHeader
	}

	if s.state == stateSendingHeader {
		n = copy(buf, s.header[s.headerSent:s.headerLen])
		s.headerSent += n
		if s.headerSent == s.headerLen {
			s.state = stateSendingBody
		}
		return n, EventData
	}

	n = copy(buf, s.cur.Bytes()[s.offset:])
	s.offset += n
	if s.offset == s.cur.Len() {
		s.reset()
		return n, EventFrameEnd
	}
	return n, EventData
}

// Close releases any frame held by the in-flight state. Called on
// client disconnect.
func (s *Stream) Close() {
	s.reset()
}

func (s *Stream) reset() {
	if s.cur != nil {
		s.cur.Release()
		s.cur = nil
	}
	s.offset = 0
	s.headerLen = 0
	s.headerSent = 0
	s.state = stateAwaitingFrame
}
