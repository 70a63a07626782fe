package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Debug bool
}

// NewLogger builds a JSON production logger. Debug lowers the level to debug.
func NewLogger(lc *LoggerConfig, options ...zap.Option) (*zap.Logger, error) {
	if lc == nil {
		lc = &LoggerConfig{}
	}

	mergedOptions := []zap.Option{
		zap.WithCaller(true),
	}
	mergedOptions = append(mergedOptions, options...)

	level := zap.InfoLevel
	if lc.Debug {
		level = zap.DebugLevel
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(level)
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return c.Build(mergedOptions...)
}
