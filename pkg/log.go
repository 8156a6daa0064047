package pkg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Firmware component identifiers.
const (
	ComponentStack   Component = "stack"
	ComponentControl Component = "control"
	ComponentBank    Component = "bank"
	ComponentSCSI    Component = "scsi"
	ComponentHAL     Component = "hal"
	ComponentSim     Component = "sim"
)

var (
	// DefaultLogger receives every record from the component helpers.
	DefaultLogger *slog.Logger

	// logLevel is shared by every logger built with a nil options value.
	logLevel = new(slog.LevelVar)

	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = NewLogger(os.Stderr, nil)
}

func logger() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// Enabled reports whether records at level would be emitted by the
// current logger. Hot paths use it to skip argument formatting.
func Enabled(level slog.Level) bool {
	return logger().Enabled(context.Background(), level)
}

// SetLogLevel sets the level of loggers built with nil options, which
// includes the default logger.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// GetLogLevel returns the shared log level.
func GetLogLevel() slog.Level {
	return logLevel.Level()
}

// SetLogger replaces the default logger.
func SetLogger(l *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = l
}

// NewLogger returns a text logger writing to w. With nil opts it follows
// the shared level set by SetLogLevel.
//
// On target w is a sink.Sink, so a record costs one formatting pass into
// the ring and never waits on the UART.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// logAt checks the level before building the attribute list, so a
// disabled level costs no allocation in interrupt context.
func logAt(level slog.Level, component Component, msg string, args []any) {
	l := logger()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, msg, append([]any{"component", string(component)}, args...)...)
}

// LogDebug logs at debug level for component.
func LogDebug(component Component, msg string, args ...any) {
	logAt(slog.LevelDebug, component, msg, args)
}

// LogInfo logs at info level for component.
func LogInfo(component Component, msg string, args ...any) {
	logAt(slog.LevelInfo, component, msg, args)
}

// LogWarn logs at warn level for component.
func LogWarn(component Component, msg string, args ...any) {
	logAt(slog.LevelWarn, component, msg, args)
}

// LogError logs at error level for component.
func LogError(component Component, msg string, args ...any) {
	logAt(slog.LevelError, component, msg, args)
}
