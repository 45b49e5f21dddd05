package qedis

// SLogger abstracts the [*slog.Logger] behavior.
//
// Two levels are used:
//   - Info for connection lifecycle (dial, close) and stream resets
//   - Debug for per-event diagnostics (data received, replies, dropped chunks)
//
// The [*slog.Logger] type satisfies this interface.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns the default [SLogger]: it discards everything.
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

type discardSLogger struct{}

var _ SLogger = discardSLogger{}

func (discardSLogger) Debug(msg string, args ...any) {}

func (discardSLogger) Info(msg string, args ...any) {}
