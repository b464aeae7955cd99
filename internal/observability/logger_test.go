package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Run("builds a named logger", func(t *testing.T) {
		logger := NewLogger(LoggerConfig{Level: "debug", Format: "json", ServiceName: "cairnd"})
		assert.NotNil(t, logger)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger := NewLogger(LoggerConfig{Level: "loud"})
		assert.False(t, logger.Core().Enabled(zap.DebugLevel))
		assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	})

	t.Run("console format builds", func(t *testing.T) {
		logger := NewLogger(LoggerConfig{Format: "console"})
		assert.NotNil(t, logger)
		Sync(logger)
	})
}
