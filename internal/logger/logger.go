// Package logger builds the zap loggers used by the entry points.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to stdout, which Lambda ships to CloudWatch Logs.
// A console encoder is used when dev is set.
func New(level string, dev bool) (*zap.Logger, error) {

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("could not parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build logger: %w", err)
	}
	return log, nil
}

// Must is like New but falls back to an info level production logger
func Must(level string, dev bool) *zap.Logger {
	log, err := New(level, dev)
	if err == nil {
		return log
	}
	log, _ = New("info", dev)
	if log == nil {
		return zap.NewNop()
	}
	log.Warn("falling back to info level", zap.Error(err))
	return log
}
