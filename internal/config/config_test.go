package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tournevent/carrierbridge/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.CarrierTimeout)
	assert.Equal(t, uint(3), cfg.TransportRetries)
	assert.Equal(t, 5*time.Minute, cfg.RateCacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.FreightcomPollInterval)
	assert.True(t, cfg.PurolatorEnabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUROLATOR_USE_MOCK", "true")
	t.Setenv("FREIGHTCOM_TIMEOUT", "45s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.True(t, cfg.PurolatorUseMock)
	assert.Equal(t, 45*time.Second, cfg.CarrierTimeoutFor("freightcom"))
	assert.Equal(t, 30*time.Second, cfg.CarrierTimeoutFor("purolator"))
	assert.Contains(t, cfg.Attributes(), attribute.Bool("rate_cache.redis", true))
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("RATE_CACHE_TTL", "soon")

	_, err := config.Load()
	assert.Error(t, err)
}
