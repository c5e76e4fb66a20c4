// Package rtsp is a minimal single-client RTSP server with in-band RTP
// media: responses and JPEG RTP packets share one TCP connection. It is
// not a conformant RTSP stack - just enough of OPTIONS/DESCRIBE/SETUP/
// PLAY/TEARDOWN to drive simple players.
package rtsp

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pion/rtp"
)

const (
	ProtoRTSP = "RTSP/1.0"

	MethodOptions  = "OPTIONS"
	MethodDescribe = "DESCRIBE"
	MethodSetup    = "SETUP"
	MethodPlay     = "PLAY"
	MethodTeardown = "TEARDOWN"
)

const (
	// PayloadTypeJPEG - RTP/AVP static payload type 26.
	PayloadTypeJPEG = 26
	// SSRC is fixed: one process, one stream.
	SSRC = 0x12345678
	// ClockRate - 90 kHz video clock.
	ClockRate = 90000
	// MaxFragment keeps header+payload below a typical MTU.
	MaxFragment = 1400
	// fragmentGap spaces fragments so a burst does not overrun the
	// sender's own output queue.
	fragmentGap = 100 * time.Microsecond
)

// Request is one parsed client request: the method from the request
// line plus the CSeq header. Other headers are skipped.
type Request struct {
	Method string
	CSeq   int
}

// Server accepts at most one client at a time. A new connection
// replaces the current session. Handle and SendFrame are driven from a
// single dispatch loop and never block on the network for more than
// one write.
type Server struct {
	ln    net.Listener
	conns chan net.Conn

	SessionID uint32
	fps       int

	client *client
}

type client struct {
	conn net.Conn
	reqs chan Request

	cseq    int
	playing bool

	seq uint16
	ts  uint32
}

// NewServer binds the listener and starts accepting. SessionID is
// random and fixed for the server lifetime.
func NewServer(address string, fps int) (*Server, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = 30
	}

	s := &Server{
		ln:        ln,
		conns:     make(chan net.Conn, 1),
		SessionID: uint32(rand.Int31n(1000000)),
		fps:       fps,
	}
	go s.accept()
	return s, nil
}

// Port returns the bound TCP port.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Playing reports whether the current session reached the streaming
// state via PLAY.
func (s *Server) Playing() bool {
	return s.client != nil && s.client.playing
}

func (s *Server) accept() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		select {
		case s.conns <- conn:
		default:
			// dispatch loop did not drain the previous one yet
			_ = conn.Close()
		}
	}
}

// readRequests frames client requests and feeds them to the dispatch
// loop. The channel closes on read error, which Handle treats as a
// client disconnect.
func readRequests(conn net.Conn, reqs chan Request) {
	defer close(reqs)

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		req := Request{Method: parseMethod(line), CSeq: -1}

		// headers until the blank line, only CSeq matters
		for {
			line, err = r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				break
			}
			if strings.Contains(line, "CSeq") {
				if i := strings.IndexByte(line, ':'); i >= 0 {
					req.CSeq, _ = strconv.Atoi(strings.TrimSpace(line[i+1:]))
				}
			}
		}

		// never block here: a dropped session has no dispatcher left to
		// drain the channel. Excess pipelined requests are discarded.
		select {
		case reqs <- req:
		default:
		}
	}
}

// parseMethod matches the request line against the supported methods
// by substring, the way the device firmware does. Unknown lines return
// an empty method and are ignored without a response.
func parseMethod(line string) string {
	for _, method := range []string{
		MethodOptions, MethodDescribe, MethodSetup, MethodPlay, MethodTeardown,
	} {
		if strings.Contains(line, method) {
			return method
		}
	}
	return ""
}

// Handle performs one bounded unit of signaling work: adopt a pending
// connection if any, then dispatch at most one pending request.
func (s *Server) Handle() {
	select {
	case conn := <-s.conns:
		if s.client != nil {
			// new client replaces the session
			_ = s.client.conn.Close()
		}
		c := &client{conn: conn, reqs: make(chan Request, 4)}
		go readRequests(conn, c.reqs)
		s.client = c
	default:
	}

	if s.client == nil {
		return
	}

	select {
	case req, ok := <-s.client.reqs:
		if !ok {
			s.drop()
			return
		}
		s.dispatch(req)
	default:
	}
}

// dispatch answers one request. The CSeq of the request being answered
// is echoed in its own response. The firmware this replaces stored the
// CSeq only after responding, so every response carried the previous
// request's value; no deployed client depends on that, so the ordering
// is corrected here.
func (s *Server) dispatch(req Request) {
	c := s.client
	if req.CSeq >= 0 {
		c.cseq = req.CSeq
	}

	switch req.Method {
	case MethodOptions:
		s.respond("Public: OPTIONS, DESCRIBE, SETUP, PLAY, TEARDOWN\r\n", nil)
	case MethodDescribe:
		body := s.describeSDP()
		s.respond(fmt.Sprintf(
			"Content-Type: application/sdp\r\nContent-Length: %d\r\n", len(body)), body)
	case MethodSetup:
		s.respond(fmt.Sprintf(
			"Session: %d\r\nTransport: RTP/AVP;unicast;client_port=8000-8001\r\n", s.SessionID), nil)
	case MethodPlay:
		s.respond(fmt.Sprintf("Session: %d\r\nRange: npt=0.000-\r\n", s.SessionID), nil)
		if s.client != nil {
			s.client.playing = true
		}
	case MethodTeardown:
		s.respond(fmt.Sprintf("Session: %d\r\n", s.SessionID), nil)
		s.drop()
	}
}

// respond writes a 200 OK with the session's CSeq, extra headers and
// an optional body.
func (s *Server) respond(headers string, body []byte) {
	c := s.client
	msg := fmt.Sprintf("%s 200 OK\r\nCSeq: %d\r\n", ProtoRTSP, c.cseq) + headers + "\r\n"
	if body != nil {
		msg += string(body)
	}
	if _, err := c.conn.Write([]byte(msg)); err != nil {
		s.drop()
	}
}

// SendFrame splits the frame into RTP packets and writes them to the
// client. The sequence number advances per fragment, the timestamp
// once per frame by ClockRate/fps.
func (s *Server) SendFrame(data []byte) error {
	c := s.client
	if c == nil || !c.playing {
		return nil
	}

	for len(data) > 0 {
		n := len(data)
		if n > MaxFragment {
			n = MaxFragment
		}

		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    PayloadTypeJPEG,
				SequenceNumber: c.seq,
				Timestamp:      c.ts,
				SSRC:           SSRC,
			},
			Payload: data[:n],
		}
		c.seq++

		b, err := pkt.Marshal()
		if err != nil {
			return err
		}
		if _, err = c.conn.Write(b); err != nil {
			s.drop()
			return err
		}

		data = data[n:]
		time.Sleep(fragmentGap)
	}

	c.ts += ClockRate / uint32(s.fps)
	return nil
}

func (s *Server) drop() {
	if s.client != nil {
		_ = s.client.conn.Close()
		s.client = nil
	}
}

// Close tears down the listener and any active session.
func (s *Server) Close() error {
	s.drop()
	return s.ln.Close()
}
