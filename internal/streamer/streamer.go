// Package streamer owns the two dispatch loops. Exactly one video
// transport and at most one control transport run per instance; each
// loop repeatedly drives its transport's Tick and then sleeps for the
// configured interval - the sleep is the only unconditional blocking
// point in a loop iteration.
package streamer

import (
	"context"
	"time"

	"github.com/camstack/camd/internal/app"
	"github.com/rs/zerolog"
)

// Transport does one bounded unit of work per Tick. Start binds
// listeners or registers routes; Tick is never invoked concurrently
// with itself.
type Transport interface {
	Name() string
	Start() error
	Tick()
	Close() error
}

func Init() {
	var cfg struct {
		Video struct {
			Protocol string `yaml:"protocol"`
			FPS      int    `yaml:"fps"`
		} `yaml:"video"`
		Control struct {
			Protocol string `yaml:"protocol"`
			Interval int    `yaml:"interval_ms"`
		} `yaml:"control"`
	}

	// defaults match the device firmware: ~30 FPS video, 10 ms control
	cfg.Video.Protocol = "http"
	cfg.Video.FPS = 30
	cfg.Control.Protocol = "http"
	cfg.Control.Interval = 10

	app.LoadConfig(&cfg)

	log = app.GetLogger("streamer")

	videoProtocol = cfg.Video.Protocol
	controlProtocol = cfg.Control.Protocol

	if cfg.Video.FPS <= 0 {
		cfg.Video.FPS = 30
	}
	fps = cfg.Video.FPS
	frameInterval = time.Second / time.Duration(fps)
	controlInterval = time.Duration(cfg.Control.Interval) * time.Millisecond
}

var log zerolog.Logger

var (
	videoProtocol   string
	controlProtocol string
	fps             int
	frameInterval   time.Duration
	controlInterval time.Duration
)

// FPS - target frame rate for the active video transport.
func FPS() int { return fps }

// FrameInterval - sleep applied by the video loop after every tick.
func FrameInterval() time.Duration { return frameInterval }

var (
	videoTransports   = map[string]func() Transport{}
	controlTransports = map[string]func() Transport{}
)

// RegisterVideo is called by video transport modules at Init.
func RegisterVideo(name string, fn func() Transport) {
	videoTransports[name] = fn
}

// RegisterControl is called by control transport modules at Init.
func RegisterControl(name string, fn func() Transport) {
	controlTransports[name] = fn
}

// Start selects the configured transports and launches both loops.
func Start(ctx context.Context) {
	fn := videoTransports[videoProtocol]
	if fn == nil {
		log.Fatal().Str("protocol", videoProtocol).Msg("[streamer] unknown video protocol")
		return
	}
	video := fn()
	if err := video.Start(); err != nil {
		log.Fatal().Err(err).Str("transport", video.Name()).Msg("[streamer] video start")
		return
	}
	log.Info().Str("transport", video.Name()).Int("fps", fps).Msg("[streamer] video")
	go run(ctx, video, frameInterval)

	if controlProtocol == "" || controlProtocol == "none" {
		return
	}
	fn = controlTransports[controlProtocol]
	if fn == nil {
		log.Fatal().Str("protocol", controlProtocol).Msg("[streamer] unknown control protocol")
		return
	}
	control := fn()
	if err := control.Start(); err != nil {
		log.Fatal().Err(err).Str("transport", control.Name()).Msg("[streamer] control start")
		return
	}
	log.Info().Str("transport", control.Name()).Msg("[streamer] control")
	go run(ctx, control, controlInterval)
}

// run drives one transport until the context ends. A tick never
// returns an error: transports recover locally, the worst case for any
// bad input is one dropped frame or command.
func run(ctx context.Context, t Transport, interval time.Duration) {
	defer func() {
		if err := t.Close(); err != nil {
			log.Warn().Err(err).Str("transport", t.Name()).Msg("[streamer] close")
		}
	}()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		t.Tick()

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}
