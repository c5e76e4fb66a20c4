// Package signaling is the WebRTC-signaling stand-in: a WebSocket
// endpoint that answers SDP offers with a synthesized answer and then
// pushes raw frame bytes as binary messages. There is no ICE, DTLS or
// SRTP behind the answer - it is a documented simplification, not a
// real WebRTC media path.
package signaling

import (
	"net"
	"net/http"
	"sync"

	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/metrics"
	"github.com/camstack/camd/internal/streamer"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Listen string `yaml:"listen"`
		} `yaml:"signaling"`
	}

	// default config
	cfg.Mod.Listen = ":8081"

	app.LoadConfig(&cfg)

	log = app.GetLogger("signaling")

	listen = cfg.Mod.Listen

	streamer.RegisterVideo("webrtc", func() streamer.Transport {
		return new(transport)
	})
}

var log zerolog.Logger

var listen string

type sessionState byte

const (
	stateDisconnected sessionState = iota
	stateSignaling
	stateConnected
)

// Message - signaling payload, both directions.
type Message struct {
	Type      string `json:"type"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
}

type transport struct {
	ln  net.Listener
	srv *http.Server

	mu       sync.Mutex
	state    sessionState
	clientID string
	conn     *websocket.Conn

	// wmu serializes writes: the reader goroutine acks candidates
	// while the video loop pushes binary frames
	wmu sync.Mutex
}

func (t *transport) writeJSON(conn *websocket.Conn, msg Message) error {
	t.wmu.Lock()
	err := conn.WriteJSON(msg)
	t.wmu.Unlock()
	return err
}

func (t *transport) Name() string { return "webrtc" }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096, // for SDP
	WriteBufferSize: 512 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (t *transport) Start() error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	t.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleWS)
	t.srv = &http.Server{Handler: mux}
	go func() {
		_ = t.srv.Serve(ln)
	}()

	log.Info().Str("addr", listen).Msg("[signaling] listen")
	return nil
}

func (t *transport) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Caller().Send()
		return
	}

	clientID := conn.RemoteAddr().String()
	log.Debug().Str("client", clientID).Msg("[signaling] connected")

	for {
		var msg Message
		if err = conn.ReadJSON(&msg); err != nil {
			break
		}
		if err = t.handleMessage(conn, clientID, &msg); err != nil {
			// the write failed, the client is gone
			break
		}
	}

	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
		t.clientID = ""
		t.state = stateDisconnected
	}
	t.mu.Unlock()

	_ = conn.Close()
	log.Debug().Str("client", clientID).Msg("[signaling] disconnected")
}

func (t *transport) handleMessage(conn *websocket.Conn, clientID string, msg *Message) error {
	switch msg.Type {
	case "offer":
		// no real negotiation: the answer is a fixed template with
		// randomized ICE/DTLS placeholders, and the session jumps
		// straight to connected
		answer := Message{Type: "answer", SDP: answerSDP()}
		if err := t.writeJSON(conn, answer); err != nil {
			return err
		}

		t.mu.Lock()
		if t.conn != nil && t.conn != conn {
			// the offering client becomes the sole streaming target
			_ = t.conn.Close()
		}
		t.conn = conn
		t.clientID = clientID
		t.state = stateConnected
		t.mu.Unlock()

		log.Info().Str("client", clientID).Msg("[signaling] streaming")

	case "ice-candidate":
		return t.writeJSON(conn, Message{Type: "ice-ack"})
	}
	return nil
}

// Tick pushes one frame to the connected client as a single binary
// message: no RTP packetization, no encryption.
func (t *transport) Tick() {
	t.mu.Lock()
	conn := t.conn
	connected := t.state == stateConnected
	t.mu.Unlock()

	if !connected {
		return
	}

	stop := metrics.Time("frame_capture")
	f, err := camera.Source().Acquire()
	stop()
	if err != nil {
		metrics.Count("capture_failures", 1)
		return
	}
	defer f.Release()

	stop = metrics.Time("frame_send")
	t.wmu.Lock()
	err = conn.WriteMessage(websocket.BinaryMessage, f.Bytes())
	t.wmu.Unlock()
	stop()

	if err != nil {
		log.Debug().Err(err).Msg("[signaling] send")
		return
	}

	metrics.Count("frames_sent", 1)
}

func (t *transport) Close() error {
	t.mu.Lock()
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
		t.state = stateDisconnected
	}
	t.mu.Unlock()
	return t.srv.Close()
}
