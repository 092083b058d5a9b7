package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger("production", "warn")
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	dev := NewLogger("development", "")
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	assert.Panics(t, func() { NewLogger("development", "loud") })
}
