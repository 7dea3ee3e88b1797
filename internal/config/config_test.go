package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "NOWPAYMENTS_API_KEY", "SITE_URL", "KAFKA_BROKERS", "CART_TTL", "NOWPAYMENTS_API_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "https://api.nowpayments.io/v1", cfg.NOWPaymentsAPIURL)
	assert.Empty(t, cfg.NOWPaymentsAPIKey)
	assert.Empty(t, cfg.SiteURL)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, ":memory:", cfg.CatalogDSN)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("NOWPAYMENTS_API_KEY", "key")
	t.Setenv("SITE_URL", "https://bots.example.com")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("CART_TTL", "36h")
	t.Setenv("INVOICE_BURST", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "key", cfg.NOWPaymentsAPIKey)
	assert.Equal(t, "https://bots.example.com", cfg.SiteURL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 36*time.Hour, cfg.CartTTL)
	assert.Equal(t, 5, cfg.InvoiceBurst)
}
