package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsAreValid(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should validate: %v", err)
	}
	if got := cfg.GetAPIBasePath(); got != "/api/v1" {
		t.Errorf("GetAPIBasePath() = %q, want /api/v1", got)
	}
	if cfg.Tickets.DefaultCurrency != "RON" {
		t.Errorf("default currency = %q, want RON", cfg.Tickets.DefaultCurrency)
	}
	if cfg.Tickets.DefaultCategoryID != 1 {
		t.Errorf("default category = %d, want 1", cfg.Tickets.DefaultCategoryID)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_MANIFEST_TTL", "45s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TICKETS_MAX_BATCH_SIZE", "not-a-number")

	cfg := Load()
	if cfg.GetServerAddress() != ":9090" {
		t.Errorf("address = %q", cfg.GetServerAddress())
	}
	if cfg.Redis.ManifestTTL != 45*time.Second {
		t.Errorf("manifest ttl = %v", cfg.Redis.ManifestTTL)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("kafka brokers = %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Tickets.MaxBatchSize != 500 {
		t.Errorf("unparseable int should fall back, got %d", cfg.Tickets.MaxBatchSize)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown broker", func(c *Config) { c.Events.Broker = "nats" }},
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }},
		{"bad currency", func(c *Config) { c.Tickets.DefaultCurrency = "LEI12" }},
		{"zero batch", func(c *Config) { c.Tickets.MaxBatchSize = 0 }},
		{"kafka without brokers", func(c *Config) {
			c.Events.Broker = "kafka"
			c.Events.KafkaBrokers = nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			cfg.GinMode = "test"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
