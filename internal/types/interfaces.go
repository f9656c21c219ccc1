package types

import (
	"log/slog"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used throughout the module.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// SlogLogger adapts *slog.Logger to Logger. slog.Logger.With returns
// *slog.Logger rather than Logger, so it cannot satisfy the interface directly.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil l wraps slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (a *SlogLogger) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogLogger) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *SlogLogger) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: a.logger.With(args...)}
}

// NopLogger discards everything. Used as the default when no logger is
// configured.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) With(...any) Logger   { return NopLogger{} }
