// Package logger provides the logging abstractions for the query governor.
// It ships a no-op default and a log/slog adapter; applications with their
// own logging stack implement the Logger interface directly.
package logger

import "log/slog"

// Logger is the structured logging interface the governor emits to.
// Arguments are alternating key-value pairs, as in log/slog.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs
	Debug(msg string, args ...any)
	// Info logs informational messages with optional key-value pairs
	Info(msg string, args ...any)
	// Warn logs warning messages with optional key-value pairs
	Warn(msg string, args ...any)
	// Error logs error-level messages with optional key-value pairs
	Error(msg string, args ...any)
}

// NoopLogger discards everything. It is the default when no logger is
// configured, so governed sessions pay nothing for logging they did not ask
// for.
type NoopLogger struct{}

// Debug does nothing.
func (n *NoopLogger) Debug(_ string, _ ...any) {}

// Info does nothing.
func (n *NoopLogger) Info(_ string, _ ...any) {}

// Warn does nothing.
func (n *NoopLogger) Warn(_ string, _ ...any) {}

// Error does nothing.
func (n *NoopLogger) Error(_ string, _ ...any) {}

// SlogAdapter implements Logger over a *slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a logger adapter wrapping an slog.Logger.
// The provided logger must not be nil.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Debug logs a debug-level message with structured key-value pairs.
func (a *SlogAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

// Info logs an info-level message with structured key-value pairs.
func (a *SlogAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

// Warn logs a warning-level message with structured key-value pairs.
func (a *SlogAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

// Error logs an error-level message with structured key-value pairs.
func (a *SlogAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}
