package env

import (
	"fmt"

	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MakeLogger builds the JSON logger the servers use.
func MakeLogger(level string) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	logConfig.Encoding = "json"

	return logConfig.Build()
}

// MakeClientLogger builds a console logger on stderr for the interactive
// clients, so log lines stay out of the way of responses on stdout.
func MakeClientLogger(level string) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	logConfig.OutputPaths = []string{"stderr"}
	logConfig.DisableStacktrace = true

	return logConfig.Build()
}

func parseLevel(level string) (zapcore.Level, error) {
	var lvl zapcore.Level

	if level == "" {
		return zapcore.InfoLevel, nil
	}

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return lvl, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
	}

	return lvl, nil
}
