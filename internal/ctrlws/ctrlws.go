// Package ctrlws accepts JSON control commands over WebSocket. The
// full state is pushed on connect; every applied command is acked with
// the same shape as the UDP transport, failures get no reply.
package ctrlws

import (
	"net"
	"net/http"

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
		} `yaml:"ctrlws"`
	}

	// default config
	cfg.Mod.Listen = ":8082"

	app.LoadConfig(&cfg)

	log = app.GetLogger("ctrlws")

	listen = cfg.Mod.Listen

	streamer.RegisterControl("websocket", func() streamer.Transport {
		return new(transport)
	})
}

var log zerolog.Logger

var listen string

type ackMessage struct {
	Status   string `json:"status"`
	Received bool   `json:"received"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type transport struct {
	ln  net.Listener
	srv *http.Server
}

func (t *transport) Name() string { return "websocket" }

func (t *transport) Start() error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	t.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleWS)
	t.srv = &http.Server{Handler: mux}
	go func() {
		_ = t.srv.Serve(ln)
	}()

	log.Info().Str("addr", listen).Msg("[ctrlws] listen")
	return nil
}

func (t *transport) Tick() {
	camera.ApplyEffects()
}

func (t *transport) Close() error {
	return t.srv.Close()
}

func handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Caller().Send()
		return
	}
	defer conn.Close()

	log.Debug().Str("client", conn.RemoteAddr().String()).Msg("[ctrlws] connected")

	// push the full current state on connect
	if err = conn.WriteJSON(camera.PTZ().Snapshot()); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Str("client", conn.RemoteAddr().String()).Msg("[ctrlws] disconnected")
			return
		}

		stop := metrics.Time("control_process")

		if err = camera.PTZ().ApplyJSON(data); err != nil {
			// validation failure: state unchanged, nothing sent back
			log.Debug().Err(err).Msg("[ctrlws] drop")
			stop()
			continue
		}

		metrics.Count("control_commands", 1)

		err = conn.WriteJSON(ackMessage{Status: "ok", Received: true})
		stop()

		if err != nil {
			return
		}
	}
}
