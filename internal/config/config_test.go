package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("DB_DSN", "postgres://localhost/medbooking")
	t.Setenv("API_BASE_URL", "https://clinic.example.com/api")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "")
	t.Setenv("API_TIMEOUT", "")
	t.Setenv("OPS_ADDR", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, ":9090", cfg.OpsAddr)
	assert.Equal(t, "America/Mexico_City", cfg.Location.String())
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	for _, key := range []string{"TELEGRAM_TOKEN", "DB_DSN", "API_BASE_URL"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFromEnv_InvalidTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("API_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
}
