package app

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GetLogger returns the module logger, honoring a per-module level
// from the `log` config section.
func GetLogger(module string) zerolog.Logger {
	if s, ok := modules[module]; ok {
		lvl, err := zerolog.ParseLevel(s)
		if err == nil {
			return log.Logger.Level(lvl)
		}
		log.Warn().Err(err).Caller().Send()
	}

	return log.Logger
}

// initLogger support:
// - format: empty (autodetect color support), color, json, text
// - level:  disabled, trace, debug, info, warn, error...
func initLogger() {
	var cfg struct {
		Mod map[string]string `yaml:"log"`
	}

	cfg.Mod = modules // defaults

	LoadConfig(&cfg)

	modules = cfg.Mod

	logger := zerolog.New(os.Stdout)

	if format := modules["format"]; format != "json" {
		console := &zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}

		switch format {
		case "text":
			console.NoColor = true
		case "color":
		default:
			console.NoColor = !isatty.IsTerminal(os.Stdout.Fd())
		}

		logger = zerolog.New(console)
	}

	lvl, _ := zerolog.ParseLevel(modules["level"])
	log.Logger = logger.Level(lvl).With().Timestamp().Logger()
}

// modules log levels
var modules = map[string]string{
	"format": "",
	"level":  "info",
}
