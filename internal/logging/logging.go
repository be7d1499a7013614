// Package logging provides the shared zerolog setup for all scanbridge
// components.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

var root zerolog.Logger

func init() {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}
	root = zerolog.New(consoleWriter).With().Timestamp().Logger()
}

// SetLevel sets the global log level from a config string.
func SetLevel(level string) {
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Component returns a logger scoped to the given subsystem name.
func Component(name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}
