// Package logging provides the zerolog logger shared by the fundtrade
// adapters and the ftc command.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger to provide a consistent interface.
type Logger struct {
	zerolog.Logger
}

// ParseLevel maps a configuration level name to a zerolog level. Unknown
// names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger writing to w. Format "json" writes one JSON object per
// line, anything else writes human readable console output.
func New(level, format string, w io.Writer) *Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &Logger{Logger: logger}
}

// NewStderr creates a console logger on stderr, the CLI default.
func NewStderr(level string) *Logger { return New(level, "console", os.Stderr) }

// NewSilent creates a logger that discards all output.
func NewSilent() *Logger {
	return &Logger{Logger: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

// Component returns a child logger tagging every event with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.With().Str("component", name).Logger()}
}
