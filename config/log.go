package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-stage/errors"
)

func parseLevel(s string) (zapcore.Level, error) {
	return zapcore.ParseLevel(s)
}

// Logger builds the process logger. The console format uses zap's
// development encoder, json the production one.
func (l *Log) Logger() (*zap.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	cfg := zap.NewProductionConfig()
	if l.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindCreation, err, "build logger")
	}
	return logger, nil
}
