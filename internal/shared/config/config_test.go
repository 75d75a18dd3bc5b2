package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CATALOG_TTL", "")
	t.Setenv("PAYMENT_GRACE_PERIOD", "")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.Catalog.TTL)
	assert.Equal(t, "shared", cfg.Catalog.Freshness)
	assert.Equal(t, 3*time.Second, cfg.Payment.GracePeriod)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 8*time.Second, cfg.API.CatalogTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CATALOG_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("RATE_LIMIT_AUTH_REQUESTS", "not-a-number")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 10, cfg.RateLimit.AuthRequests)
}

func TestPublicURL(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: "9000"}}
	assert.Equal(t, "http://localhost:9000", cfg.GetPublicURL())

	cfg.Server.PublicURL = "https://sandbox.example.com/"
	assert.Equal(t, "https://sandbox.example.com", cfg.GetPublicURL())
}
