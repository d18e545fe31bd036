package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mslinn/perftest/pkg/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zap.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zap.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zap.InfoLevel, ParseLevel(""))
	assert.Equal(t, zap.InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.LogFormat = format
			cfg.LogLevel = "warn"

			logger, err := NewLogger(cfg)
			require.NoError(t, err)
			defer logger.Sync()

			assert.False(t, logger.Core().Enabled(zap.InfoLevel))
			assert.True(t, logger.Core().Enabled(zap.WarnLevel))
		})
	}
}
