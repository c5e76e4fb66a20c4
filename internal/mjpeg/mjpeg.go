package mjpeg

import (
	"net/http"
	"time"

	"github.com/camstack/camd/internal/api"
	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/metrics"
	"github.com/camstack/camd/internal/streamer"
	"github.com/camstack/camd/pkg/frame"
	"github.com/camstack/camd/pkg/mjpeg"
	"github.com/rs/zerolog"
)

func Init() {
	log = app.GetLogger("mjpeg")

	streamer.RegisterVideo("http", func() streamer.Transport {
		return new(transport)
	})
}

var log zerolog.Logger

const landingPage = `<html><head>
<meta name='viewport' content='width=device-width, initial-scale=1'>
<style>img { width: 100%; height: auto; }</style>
</head><body>
<h1>camd MJPEG Stream</h1>
<img src='/video' />
</body></html>`

// transport serves chunked MJPEG over the shared HTTP server. The
// per-connection work happens in the handler goroutines; the video
// loop's tick only enforces the frame interval, so Tick is a no-op.
type transport struct{}

func (t *transport) Name() string { return "http" }

func (t *transport) Start() error {
	api.HandleFunc("stream", handlerPage)
	api.HandleFunc("video", handlerVideo)
	return nil
}

func (t *transport) Tick() {}

func (t *transport) Close() error { return nil }

func handlerPage(w http.ResponseWriter, r *http.Request) {
	api.Response(w, landingPage, "text/html")
}

// writeChunk - one bounded write per state machine step.
const writeChunk = 4096

func handlerVideo(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", mjpeg.ContentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	h.Set("Connection", "keep-alive")

	log.Debug().Str("client", r.RemoteAddr).Msg("[mjpeg] stream start")

	stream := mjpeg.NewStream(camera.Source())
	defer stream.Close()

	buf := make([]byte, writeChunk)
	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("client", r.RemoteAddr).Msg("[mjpeg] stream stop")
			return
		default:
		}

		n, ev := stream.Next(buf)

		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				log.Debug().Err(err).Str("client", r.RemoteAddr).Msg("[mjpeg] stream stop")
				return
			}
		}

		switch ev {
		case mjpeg.EventNone:
			metrics.Count("capture_failures", 1)
		case mjpeg.EventCooldown:
			metrics.Count("capture_failures", 1)
			time.Sleep(frame.Cooldown)
		case mjpeg.EventFrameEnd:
			flusher.Flush()
			metrics.Count("frames_sent", 1)
			// cap the frame rate; this sleep is the only scheduling
			// point, not per-chunk
			time.Sleep(streamer.FrameInterval())
		}
	}
}
