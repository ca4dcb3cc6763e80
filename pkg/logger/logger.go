package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Debug bool
}

// NewLogger builds a JSON zap logger writing to stdout.
// Debug lowers the level to debug and enables development mode.
func NewLogger(cfg *LoggerConfig, options ...zap.Option) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Debug {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	c := zap.Config{
		Level:            level,
		Development:      cfg.Debug,
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	mergedOptions := append([]zap.Option{zap.AddCaller()}, options...)
	return c.Build(mergedOptions...)
}
