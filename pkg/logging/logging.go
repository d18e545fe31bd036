// Package logging builds the zap logger shared by the harness, the sinks and the CLIs.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mslinn/perftest/pkg/config"
)

// NewLogger builds a zap logger from the log_level and log_format settings.
// Logs go to stderr so report output on stdout stays clean.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.LogFormat, "json") {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.LogLevel))

	return zapCfg.Build()
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
