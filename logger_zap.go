package identity

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to Logger
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{sugar: l.Sugar()}
}

func (z zapLogger) Debug(msg string, args ...any) {
	z.sugar.Debugw(msg, args...)
}

func (z zapLogger) Info(msg string, args ...any) {
	z.sugar.Infow(msg, args...)
}

func (z zapLogger) Warn(msg string, args ...any) {
	z.sugar.Warnw(msg, args...)
}

func (z zapLogger) Error(msg string, args ...any) {
	z.sugar.Errorw(msg, args...)
}

// NewZap builds a production zap logger, or a development one when debug
// is set, at the given level.
func NewZap(level string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
