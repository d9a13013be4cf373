package config

import (
	"os"
	"testing"
)

func TestGetEnvHelpers(t *testing.T) {
	os.Setenv("TEST_STR", "value")
	os.Setenv("TEST_INT", "123")
	os.Setenv("TEST_BOOL_TRUE", "true")
	os.Setenv("TEST_BOOL_FALSE", "false")

	if v := getEnv("TEST_STR", ""); v != "value" {
		t.Fatalf("expected value, got %s", v)
	}
	if v := getEnvAsInt("TEST_INT", 0); v != 123 {
		t.Fatalf("expected 123, got %d", v)
	}
	if !getEnvAsBool("TEST_BOOL_TRUE", false) {
		t.Fatalf("expected true")
	}
	if getEnvAsBool("TEST_BOOL_FALSE", true) {
		t.Fatalf("expected false")
	}
}

func TestLoadDefaults(t *testing.T) {
	// ensure no interfering env vars
	_ = os.Unsetenv("SERVER_PORT")
	_ = os.Unsetenv("STRIPE_CURRENCY")
	cfg := Load()
	if cfg.Server.Port == "" {
		t.Fatalf("expected default server port set")
	}
	if cfg.Stripe.Currency != "eur" {
		t.Fatalf("expected default currency eur, got %s", cfg.Stripe.Currency)
	}
	if cfg.Catalog.CacheTTLMinutes == 0 {
		t.Fatalf("expected catalog defaults set")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka1:9092,kafka2:9092")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_override")

	cfg := Load()
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka2:9092" {
		t.Fatalf("expected two brokers, got %v", cfg.Kafka.Brokers)
	}
	if !cfg.RateLimit.Enabled {
		t.Fatalf("expected rate limit enabled")
	}
	if cfg.Stripe.SecretKey != "sk_test_override" {
		t.Fatalf("expected stripe key from env")
	}
}
