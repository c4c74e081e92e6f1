package logging

import "go.uber.org/zap"

// ZapAdapter wraps a zap sugared logger to implement the Logger interface.
// The alternating key/value argument convention maps directly onto zap's
// *w methods.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

// NewZapAdapter creates a Logger from an existing *zap.Logger.
func NewZapAdapter(logger *zap.Logger) Logger {
	return &ZapAdapter{sugar: logger.Sugar()}
}

// NewZapLogger creates a production zap-backed Logger. It falls back to a
// no-op core if zap construction fails, so callers never receive nil.
func NewZapLogger() Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return &ZapAdapter{sugar: zap.NewNop().Sugar()}
	}
	return &ZapAdapter{sugar: logger.Sugar()}
}

// Debug logs a debug message.
func (z *ZapAdapter) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }

// Info logs an informational message.
func (z *ZapAdapter) Info(msg string, args ...any) { z.sugar.Infow(msg, args...) }

// Warn logs a warning message.
func (z *ZapAdapter) Warn(msg string, args ...any) { z.sugar.Warnw(msg, args...) }

// Error logs an error message.
func (z *ZapAdapter) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }
