package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ordercast", cfg.Service.Name)
	assert.Equal(t, ":8080", cfg.Service.Addr)
	assert.Equal(t, 45*time.Second, cfg.Presence.TTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Channel.ReconnectDelay)
	assert.Empty(t, cfg.Redis.URL)
	assert.False(t, cfg.Auth.RequireAdminToken)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORDERCAST_SERVICE_ADDR", ":9090")
	t.Setenv("ORDERCAST_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("ORDERCAST_AUTH_REQUIREADMINTOKEN", "true")
	t.Setenv("ORDERCAST_PRESENCE_TTL", "1m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Service.Addr)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.True(t, cfg.Auth.RequireAdminToken)
	assert.Equal(t, time.Minute, cfg.Presence.TTL)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("ordercast")
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Service.Env)
}
