// Package control is the HTTP REST control transport: JSON commands in
// via POST /control, full state out via GET /control or /status.
package control

import (
	"errors"
	"io"
	"net/http"

	"github.com/camstack/camd/internal/api"
	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/metrics"
	"github.com/camstack/camd/internal/streamer"
	"github.com/camstack/camd/pkg/ptz"
	"github.com/rs/zerolog"
)

func Init() {
	log = app.GetLogger("control")

	streamer.RegisterControl("http", func() streamer.Transport {
		return new(transport)
	})
}

var log zerolog.Logger

// transport rides the shared HTTP server; commands are handled on the
// server goroutines, the control loop's tick applies hardware effects.
type transport struct{}

func (t *transport) Name() string { return "http" }

func (t *transport) Start() error {
	api.HandleFunc("control", handlerControl)
	api.HandleFunc("status", handlerStatus)
	return nil
}

func (t *transport) Tick() {
	camera.ApplyEffects()
}

func (t *transport) Close() error { return nil }

func handlerControl(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		defer metrics.Time("control_process")()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err = camera.PTZ().ApplyJSON(body); err != nil {
			if errors.Is(err, ptz.ErrNoFields) {
				// well-formed JSON with nothing to apply is a no-op,
				// not an error; 400 is reserved for malformed commands
				w.WriteHeader(http.StatusOK)
				return
			}
			log.Debug().Err(err).Msg("[control] bad command")
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		metrics.Count("control_commands", 1)
		w.WriteHeader(http.StatusOK)

	case "GET":
		handlerStatus(w, r)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func handlerStatus(w http.ResponseWriter, r *http.Request) {
	api.ResponseJSON(w, camera.PTZ().Snapshot())
}
