package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, "storefront_db", cfg.PostgresDB)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 72, cfg.CartTTLHours)
	assert.Equal(t, 30, cfg.CheckoutTTLMinutes)
	assert.False(t, cfg.OTELEnabled)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CHECKOUT_TTL_MINUTES", "15")
	t.Setenv("ORDER_SERVICE_URL", "http://orders.internal:8003")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15, cfg.CheckoutTTLMinutes)
	assert.Equal(t, "http://orders.internal:8003", cfg.OrderServiceURL)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "STOREFRONT_HTTP_PORT", "70000"},
		{"zero cart ttl", "CART_TTL_HOURS", "0"},
		{"zero checkout ttl", "CHECKOUT_TTL_MINUTES", "0"},
		{"sample rate above one", "OTEL_SAMPLE_RATE", "1.5"},
		{"malformed collaborator url", "ORDER_SERVICE_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	t.Setenv("CART_TTL_HOURS", "48")
	t.Setenv("CHECKOUT_TTL_MINUTES", "20")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.CartTTL())
	assert.Equal(t, 20*time.Minute, cfg.CheckoutTTL())
}

func TestConfig_PostgresMapping(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("DB_MAX_CONN_LIFETIME_MINUTES", "90")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, 90*time.Minute, pg.MaxConnLifetime)
	assert.Equal(t, int32(25), pg.MaxConns)
}
