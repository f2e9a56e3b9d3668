package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a configured Zap logger from Viper settings.
// Reads "logging.level" (debug, info, warn, error; default "info"),
// "logging.format" (json, console; default "json") and "logging.output"
// (stderr, stdout or a file path; default "stderr").
func NewLogger(v *viper.Viper) (*zap.Logger, error) {
	cfg, err := loggerConfig(v)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// loggerConfig maps the logging section onto a zap.Config. JSON logs carry
// ISO8601 timestamps and a service=airwatch field for log aggregation.
func loggerConfig(v *viper.Viper) (zap.Config, error) {
	level := v.GetString("logging.level")
	format := v.GetString("logging.format")

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]any{"service": "airwatch"}
	default:
		return zap.Config{}, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if out := v.GetString("logging.output"); out != "" {
		cfg.OutputPaths = []string{out}
	}
	return cfg, nil
}
