// Package logging provides the diagnostic logger used by builders and the CLI.
//
// A Logger is an explicit value passed to each component. Its minimum level
// and enabled flag can be changed at runtime; changes are shared by every
// logger derived from it with With.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Fields is optional structured metadata attached to a log entry.
type Fields map[string]any

// Config contains logger configuration.
type Config struct {
	// Level sets the minimum level (debug, info, warn, error).
	Level string
	// Enabled turns all output on or off.
	Enabled bool
	// Pretty enables human-readable console output.
	Pretty bool
	// Output sets the output writer (defaults to os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Enabled: true,
		Pretty:  false,
		Output:  os.Stderr,
	}
}

type settings struct {
	enabled atomic.Bool
	level   atomic.Int32
}

// Logger writes leveled, structured diagnostics. A nil *Logger discards
// everything.
type Logger struct {
	zl zerolog.Logger
	s  *settings
}

// New creates a Logger with the given configuration. Unknown levels fall
// back to info.
func New(cfg Config) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    true,
		}
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	l := &Logger{
		zl: zerolog.New(output).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger(),
		s: &settings{},
	}
	l.s.enabled.Store(cfg.Enabled)
	l.s.level.Store(int32(level))
	return l
}

// Nop returns a disabled Logger.
func Nop() *Logger {
	l := &Logger{zl: zerolog.Nop(), s: &settings{}}
	l.s.level.Store(int32(zerolog.Disabled))
	return l
}

// ParseLevel parses one of debug, info, warn, error.
func ParseLevel(level string) (zerolog.Level, error) {
	switch level {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
}

// SetLevel changes the minimum level. Last write wins.
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil || l == nil {
		return err
	}
	l.s.level.Store(int32(parsed))
	return nil
}

// SetEnabled turns output on or off. Last write wins.
func (l *Logger) SetEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.s.enabled.Store(enabled)
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level zerolog.Level) bool {
	if l == nil || !l.s.enabled.Load() {
		return false
	}
	return level >= zerolog.Level(l.s.level.Load())
}

// With returns a child logger that adds fields to every entry. The child
// shares level and enabled settings with l.
func (l *Logger) With(fields Fields) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		zl: l.zl.With().Fields(map[string]any(fields)).Logger(),
		s:  l.s,
	}
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields Fields) { l.log(zerolog.ErrorLevel, msg, fields) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields Fields) { l.log(zerolog.WarnLevel, msg, fields) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields Fields) { l.log(zerolog.InfoLevel, msg, fields) }

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields Fields) { l.log(zerolog.DebugLevel, msg, fields) }

func (l *Logger) log(level zerolog.Level, msg string, fields Fields) {
	if !l.Enabled(level) {
		return
	}
	ev := l.zl.WithLevel(level)
	if len(fields) > 0 {
		ev = ev.Fields(map[string]any(fields))
	}
	ev.Msg(msg)
}
