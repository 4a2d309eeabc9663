// Package logging configures the global zerolog logger and emits the
// process startup summary.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable holding the log level.
const LevelEnv = "NOKSHA_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// NOKSHA_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	InitWriter(os.Stderr)
}

// InitWriter is Init with an explicit console destination.
func InitWriter(w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
