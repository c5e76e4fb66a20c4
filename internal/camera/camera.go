// Package camera owns the device side: the frame source the video
// loop captures from, the shared PTZ/LED state store every control
// transport mutates, and the hardware-effect hook the control loop
// applies each tick.
package camera

import (
	"github.com/camstack/camd/internal/app"
	"github.com/camstack/camd/pkg/frame"
	"github.com/camstack/camd/pkg/ptz"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Source     string `yaml:"source"`
			Dir        string `yaml:"dir"`
			Resolution string `yaml:"resolution"`
			Quality    int    `yaml:"quality"`
			Raw        bool   `yaml:"raw"`
		} `yaml:"camera"`
	}

	cfg.Mod.Source = "pattern"
	cfg.Mod.Resolution = "VGA"
	cfg.Mod.Quality = 80

	app.LoadConfig(&cfg)

	log = app.GetLogger("camera")

	switch cfg.Mod.Source {
	case "dir":
		dir, err := frame.NewDir(cfg.Mod.Dir)
		if err != nil {
			log.Error().Err(err).Str("dir", cfg.Mod.Dir).Msg("[camera] dir source, falling back to pattern")
			source = frame.NewPattern(cfg.Mod.Resolution, cfg.Mod.Quality, cfg.Mod.Raw)
			break
		}
		source = dir
	default:
		source = frame.NewPattern(cfg.Mod.Resolution, cfg.Mod.Quality, cfg.Mod.Raw)
	}

	log.Info().
		Str("source", cfg.Mod.Source).
		Str("resolution", cfg.Mod.Resolution).
		Bool("raw", cfg.Mod.Raw).
		Msg("[camera] init")
}

var log zerolog.Logger

var source frame.Source

var store = ptz.NewStore()

// Source - the active frame source for the video loop.
func Source() frame.Source { return source }

// PTZ - the shared control state store.
func PTZ() *ptz.Store { return store }

var lastLed bool

// ApplyEffects pushes the current control state to the hardware. The
// GPIO layer lives outside this repo; here the LED transition is the
// observable effect.
func ApplyEffects() {
	state := store.Snapshot()
	if state.Led != lastLed {
		lastLed = state.Led
		log.Debug().Bool("led", state.Led).Msg("[camera] led")
	}
}
