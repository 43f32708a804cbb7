package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse()
	require.NoError(t, err)

	assert.Equal(t, uint16(3000), cfg.HttpServerPort)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 50, cfg.RateLimitEvents)
	assert.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, time.Minute, cfg.RateLimitConnectWindow)
	assert.False(t, cfg.RedisEnabled)
	assert.False(t, cfg.ExposeRooms, "room listing stays private unless enabled")
}

func TestParse_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("RATE_LIMIT_EVENTS", "0")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EXPOSE_ROOMS", "true")

	cfg, err := parse()
	require.NoError(t, err)

	assert.Equal(t, uint16(8080), cfg.HttpServerPort)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 0, cfg.RateLimitEvents)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.ExposeRooms)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]struct{ key, val string }{
		"port too low":     {"PORT", "80"},
		"bad log level":    {"LOG_LEVEL", "verbose"},
		"not a number":     {"WS_SEND_BUFFER", "lots"},
		"zero send buffer": {"WS_SEND_BUFFER", "0"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := parse()
			assert.Error(t, err)
		})
	}
}
