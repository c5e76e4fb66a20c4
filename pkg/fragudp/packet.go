// Package fragudp implements the fragmented-UDP video wire format:
// a fixed 14-byte header followed by up to MaxPayload bytes of frame
// data. No acks, no retransmission - the receiver reassembles by
// frame/packet number and drops incomplete frames.
package fragudp

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize - fixed wire header length in bytes.
	HeaderSize = 14
	// MaxPayload keeps each datagram below a typical MTU.
	MaxPayload = 1400
)

var ErrShortPacket = errors.New("fragudp: short packet")

// Header describes one fragment. All fields are big-endian on the wire.
type Header struct {
	FrameNumber  uint32 // increments once per frame, never reused
	PacketNumber uint16 // 0-based within the frame
	TotalPackets uint16 // ceil(FrameSize / MaxPayload)
	FrameSize    uint32 // total frame length in bytes
	PayloadSize  uint16 // bytes of frame data in this datagram
}

// Marshal writes the header into b, which must hold HeaderSize bytes.
func (h *Header) Marshal(b []byte) {
	binary.BigEndian.PutUint32(b[0:], h.FrameNumber)
	binary.BigEndian.PutUint16(b[4:], h.PacketNumber)
	binary.BigEndian.PutUint16(b[6:], h.TotalPackets)
	binary.BigEndian.PutUint32(b[8:], h.FrameSize)
	binary.BigEndian.PutUint16(b[12:], h.PayloadSize)
}

// Unmarshal parses a datagram's header and returns its payload.
func Unmarshal(b []byte) (h Header, payload []byte, err error) {
	if len(b) < HeaderSize {
		return h, nil, ErrShortPacket
	}
	h.FrameNumber = binary.BigEndian.Uint32(b[0:])
	h.PacketNumber = binary.BigEndian.Uint16(b[4:])
	h.TotalPackets = binary.BigEndian.Uint16(b[6:])
	h.FrameSize = binary.BigEndian.Uint32(b[8:])
	h.PayloadSize = binary.BigEndian.Uint16(b[12:])
	if int(h.PayloadSize) != len(b)-HeaderSize {
		return h, nil, ErrShortPacket
	}
	return h, b[HeaderSize:], nil
}

// TotalPackets returns the fragment count for a frame of the given size.
func TotalPackets(frameSize int) int {
	return (frameSize + MaxPayload - 1) / MaxPayload
}

// Fragmenter numbers frames and splits them into datagrams. One
// Fragmenter per sender; frame numbers increment monotonically.
type Fragmenter struct {
	frameNumber uint32
	buf         [HeaderSize + MaxPayload]byte
}

// FrameNumber returns the number assigned to the last split frame.
func (f *Fragmenter) FrameNumber() uint32 { return f.frameNumber }

// Split numbers the frame and emits one datagram per fragment. The
// datagram slice is only valid until the next emit call.
func (f *Fragmenter) Split(data []byte, emit func(pkt []byte) error) error {
	f.frameNumber++

	total := TotalPackets(len(data))
	for i := 0; i < total; i++ {
		payload := data[i*MaxPayload:]
		if len(payload) > MaxPayload {
			payload = payload[:MaxPayload]
		}

		h := Header{
			FrameNumber:  f.frameNumber,
			PacketNumber: uint16(i),
			TotalPackets: uint16(total),
			FrameSize:    uint32(len(data)),
			PayloadSize:  uint16(len(payload)),
		}
		h.Marshal(f.buf[:])
		n := copy(f.buf[HeaderSize:], payload)

		if err := emit(f.buf[:HeaderSize+n]); err != nil {
			return err
		}
	}
	return nil
}
