package logger

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const appName = "exchange-rate-facade"

// Logger is a leveled key/value logger shared by all components.
type Logger struct {
	hclog.Logger
}

// NewLogger returns a text logger at the given level ("debug", "info", "warn", "error").
// Unknown or empty levels fall back to info.
func NewLogger(level string) *Logger {
	return NewLoggerWithFormat(level, "")
}

// NewLoggerWithFormat is NewLogger with an explicit output format; "json" enables JSON lines.
func NewLoggerWithFormat(level, format string) *Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}

	return &Logger{
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:       appName,
			Level:      lvl,
			Output:     os.Stderr,
			JSONFormat: strings.EqualFold(format, "json"),
		}),
	}
}

// Named returns a sub-logger whose name is appended to the parent's.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// With returns a sub-logger carrying the given key/value pairs on every line.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{Logger: hclog.NewNullLogger()}
}
