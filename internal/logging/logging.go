package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

var (
	disabled atomic.Bool
	level    = new(slog.LevelVar)
	logger   atomic.Pointer[slog.Logger]
)

func init() {
	if os.Getenv("NEXUS_DEBUG") == "1" {
		level.Set(slog.LevelDebug)
	}
	SetOutput(os.Stderr)
}

// SetOutput replaces the log destination. Output is colorized by tint.
func SetOutput(w io.Writer) {
	logger.Store(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

// SetLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names leave the level unchanged.
func SetLevel(name string) {
	if os.Getenv("NEXUS_DEBUG") == "1" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info", "":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
}

// Disable turns off all logging
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on
func Enable() {
	disabled.Store(false)
}

func emit(lvl slog.Level, msg string) {
	if disabled.Load() {
		return
	}
	logger.Load().Log(context.Background(), lvl, msg)
}

// Info logs an info message
func Info(v ...any) {
	emit(slog.LevelInfo, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	emit(slog.LevelInfo, fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(v ...any) {
	emit(slog.LevelError, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	emit(slog.LevelError, fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func Warn(v ...any) {
	emit(slog.LevelWarn, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	emit(slog.LevelWarn, fmt.Sprintf(format, v...))
}

// Debug logs a debug message
func Debug(v ...any) {
	emit(slog.LevelDebug, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	emit(slog.LevelDebug, fmt.Sprintf(format, v...))
}

// ContextLogger is embedded in logic structs so they can log with a
// request-scoped prefix.
type ContextLogger struct {
	prefix string
}

// WithContext returns a ContextLogger tagged with the request id stored in
// ctx, if any.
func WithContext(ctx context.Context) ContextLogger {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return ContextLogger{prefix: "[" + id + "] "}
	}
	return ContextLogger{}
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id picked up by WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func (l ContextLogger) Infof(format string, v ...any) {
	Infof(l.prefix+format, v...)
}

func (l ContextLogger) Errorf(format string, v ...any) {
	Errorf(l.prefix+format, v...)
}

func (l ContextLogger) Warnf(format string, v ...any) {
	Warnf(l.prefix+format, v...)
}

func (l ContextLogger) Debugf(format string, v ...any) {
	Debugf(l.prefix+format, v...)
}
