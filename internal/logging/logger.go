// Package logging provides structured logging for the Depot engine.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with a per-component context.
type Logger struct {
	zlog zerolog.Logger
}

// NewLogger creates a logger tagged with the given component name, writing
// human-readable console output to stderr.
func NewLogger(component string) *Logger {
	return NewLoggerTo(component, zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}

// NewLoggerTo creates a component logger writing to w. Hosts embedding the
// engine use this to route engine logs into their own sink.
func NewLoggerTo(component string, w io.Writer) *Logger {
	zlog := zerolog.New(w).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// With creates a child logger with additional context.
func (l *Logger) With() zerolog.Context { return l.zlog.With() }

// SetGlobalLevel sets the global zerolog level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
