// Package logging provides structured logging for both CLI and GUI modes.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/docupload/docupload/internal/events"
)

// Logger wraps zerolog with mode-specific behavior.
type Logger struct {
	zlog     zerolog.Logger
	mode     string // "cli" or "gui"
	eventBus *events.EventBus
	output   io.Writer // current output writer
}

// NewLogger creates a new logger for the specified mode.
// When eventBus is non-nil, warnings and errors are also published as LogEvents.
func NewLogger(mode string, eventBus *events.EventBus) *Logger {
	var output io.Writer

	if mode == "cli" {
		// CLI mode: stdout for logs, stderr is reserved for progress bars
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	l := &Logger{
		mode:     mode,
		eventBus: eventBus,
	}
	l.rebuild(output)
	return l
}

// NewDefaultCLILogger creates a default CLI logger.
func NewDefaultCLILogger() *Logger {
	return NewLogger("cli", nil)
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), mode: "cli", output: io.Discard}
}

func (l *Logger) rebuild(w io.Writer) {
	l.output = w
	zl := zerolog.New(w).With().Timestamp().Logger()
	if l.eventBus != nil {
		zl = zl.Hook(busHook{bus: l.eventBus})
	}
	l.zlog = zl
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Fatal returns a fatal level event.
func (l *Logger) Fatal() *zerolog.Event {
	return l.zlog.Fatal()
}

// With creates a child logger context with additional fields.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// WithFields returns a copy of the logger carrying the given string fields.
func (l *Logger) WithFields(kv ...string) *Logger {
	ctx := l.zlog.With()
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Str(kv[i], kv[i+1])
	}
	return &Logger{
		zlog:     ctx.Logger(),
		mode:     l.mode,
		eventBus: l.eventBus,
		output:   l.output,
	}
}

// SetOutput changes the output writer for the logger.
// This is useful for redirecting logs through progress bars.
func (l *Logger) SetOutput(w io.Writer) {
	l.rebuild(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	})
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// AttachFile tees log output into a plain-text log file in dir.
// The returned closer must be called on shutdown.
func (l *Logger) AttachFile(dir, name string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}
	l.rebuild(zerolog.MultiLevelWriter(l.output, fileWriter))
	return f, nil
}

// Debugf logs a debug message with printf-style formatting.
// This is only shown when debug/verbose mode is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// busHook forwards warnings and errors to the event bus so the GUI can surface them.
type busHook struct {
	bus *events.EventBus
}

func (h busHook) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	switch {
	case level >= zerolog.ErrorLevel:
		h.bus.PublishLog(events.ErrorLevel, message, "", nil)
	case level == zerolog.WarnLevel:
		h.bus.PublishLog(events.WarnLevel, message, "", nil)
	}
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
