package logging

import "log/slog"

// KVLogger adapts *slog.Logger to the small Debug/Info/Error interface the
// dispatcher and scheduler accept.
type KVLogger struct {
	logger *slog.Logger
}

// NewKVLogger wraps logger.
func NewKVLogger(logger *slog.Logger) *KVLogger {
	return &KVLogger{logger: logger}
}

func (l *KVLogger) Debug(msg string, keysAndValues ...any) { l.logger.Debug(msg, keysAndValues...) }
func (l *KVLogger) Info(msg string, keysAndValues ...any)  { l.logger.Info(msg, keysAndValues...) }
func (l *KVLogger) Error(msg string, keysAndValues ...any) { l.logger.Error(msg, keysAndValues...) }
