package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "JWT_SECRET", "JWT_TTL", "TASK_TTL", "EVENTS_POLL_INTERVAL", "AUTH_RATE_LIMIT", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTRevocationTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.TaskTTL)
	assert.Equal(t, 2*time.Second, cfg.EventsPollInterval)
	assert.Empty(t, cfg.CORSOrigins())
	require.NoError(t, cfg.Validate())
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("TASK_TTL", "a month")
	t.Setenv("AUTH_RATE_LIMIT", "many")
	t.Setenv("HTTP_LOG_ENABLED", "maybe")
	cfg := Load()

	assert.Equal(t, 30*24*time.Hour, cfg.TaskTTL)
	assert.Equal(t, 20, cfg.AuthRateLimit)
	assert.False(t, cfg.HTTPLogEnabled)
}

func TestCORSOriginsTrimsEntries(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, Load().CORSOrigins())
}

func TestValidate(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	cfg := Load()
	assert.Error(t, cfg.Validate(), "dev secret outside development")

	cfg.JWTSecret = "s3cret"
	require.NoError(t, cfg.Validate())

	cfg.EventsPollInterval = 0
	cfg.AuthRateLimit = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENTS_POLL_INTERVAL")
	assert.Contains(t, err.Error(), "AUTH_RATE_LIMIT")
}
