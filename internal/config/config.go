package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort           int
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	NOWPaymentsAPIKey    string
	NOWPaymentsAPIURL    string
	NOWPaymentsIPNSecret string
	SiteURL              string

	InvoiceRatePerMin int
	InvoiceBurst      int

	RedisAddr     string
	RedisPassword string
	CartTTL       time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	CatalogDSN string
}

// Load reads the environment. Payment credentials may be empty; requests that
// need them fail with a configuration error instead of stopping startup.
func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:           getEnvInt("HTTP_PORT", 8080),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		NOWPaymentsAPIKey:    os.Getenv("NOWPAYMENTS_API_KEY"),
		NOWPaymentsAPIURL:    getEnv("NOWPAYMENTS_API_URL", "https://api.nowpayments.io/v1"),
		NOWPaymentsIPNSecret: os.Getenv("NOWPAYMENTS_IPN_SECRET"),
		SiteURL:              os.Getenv("SITE_URL"),

		InvoiceRatePerMin: getEnvInt("INVOICE_RATE_PER_MIN", 30),
		InvoiceBurst:      getEnvInt("INVOICE_BURST", 5),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CartTTL:       getEnvDuration("CART_TTL", 7*24*time.Hour),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "nowpayments-ipn"),

		CatalogDSN: getEnv("CATALOG_DSN", ":memory:"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
