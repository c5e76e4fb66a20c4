package rtsp

import (
	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/metrics"
	"github.com/camstack/camd/internal/streamer"
	"github.com/camstack/camd/pkg/rtsp"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Listen string `yaml:"listen"`
		} `yaml:"rtsp"`
	}

	// default config
	cfg.Mod.Listen = ":8554"

	app.LoadConfig(&cfg)

	log = app.GetLogger("rtsp")

	listen = cfg.Mod.Listen

	streamer.RegisterVideo("rtsp", func() streamer.Transport {
		return new(transport)
	})
}

var log zerolog.Logger

var listen string

type transport struct {
	server *rtsp.Server
}

func (t *transport) Name() string { return "rtsp" }

func (t *transport) Start() error {
	server, err := rtsp.NewServer(listen, streamer.FPS())
	if err != nil {
		return err
	}
	t.server = server

	log.Info().Str("addr", listen).Uint32("session", server.SessionID).Msg("[rtsp] listen")
	return nil
}

// Tick handles pending signaling, then streams one frame if the
// session reached the PLAY state. Frames are acquired and released
// within the tick, so TEARDOWN never strands a buffer.
func (t *transport) Tick() {
	t.server.Handle()

	if !t.server.Playing() {
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
	err = t.server.SendFrame(f.Bytes())
	stop()

	if err != nil {
		log.Debug().Err(err).Msg("[rtsp] send")
		return
	}

	metrics.Count("frames_sent", 1)
}

func (t *transport) Close() error {
	return t.server.Close()
}
