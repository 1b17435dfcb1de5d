// Package logger configures the process-wide zerolog logger from the
// resolved settings. Binaries call Setup once; everything else
// receives a logger value and never touches the globals.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mbardeau/factura/pkg/config"
)

// Setup initializes the global logger. Format "console" writes
// human-readable lines to stderr, anything else emits JSON. Unknown
// levels fall back to info rather than failing startup.
func Setup(cfg config.LogSettings) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stderr)
	if strings.ToLower(cfg.Format) == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = logger.With().Timestamp().Logger()
}

// WithComponent returns the global logger tagged with a component
// field, e.g. "lifecycle" or "storage".
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithRequestID tags a logger with the request id assigned by the
// HTTP middleware.
func WithRequestID(requestID string) zerolog.Logger {
	return log.Logger.With().Str("request_id", requestID).Logger()
}
