package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", c.Server.Port)
	}
	if c.Prices.CacheTTL != time.Second {
		t.Fatalf("expected 1s cache ttl, got %v", c.Prices.CacheTTL)
	}
	if c.Broadcast.QueueSize != 16 || c.Broadcast.OverflowPolicy != "drop_oldest" {
		t.Fatalf("unexpected broadcast defaults: %+v", c.Broadcast)
	}
	if c.Schedule.Producers["short_hunter"] != 15 || c.Schedule.Producers["bounty_seeker"] != 60 || c.Schedule.Producers["sniper_guru"] != 45 {
		t.Fatalf("unexpected producers: %v", c.Schedule.Producers)
	}
	if len(c.Prices.DefaultSymbols) != 13 {
		t.Fatalf("expected 13 default symbols, got %d", len(c.Prices.DefaultSymbols))
	}
}

func TestParseRejectsUnknownOverflowPolicy(t *testing.T) {
	_, err := Parse([]byte("broadcast:\n  overflow_policy: block\n"))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseRejectsKafkaWithoutBrokers(t *testing.T) {
	_, err := Parse([]byte("kafka:\n  enabled: true\n  brokers: []\n"))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SIGNALHUB_PORT", "9100")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9100 {
		t.Fatalf("expected env port override, got %d", c.Server.Port)
	}
	if c.Redis.Addr != "redis:6379" {
		t.Fatalf("expected redis override, got %s", c.Redis.Addr)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("expected kafka enabled with two brokers, got %+v", c.Kafka.Brokers)
	}
}

func TestLoadWithEnvMissingFileUsesDefaults(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "development" {
		t.Fatalf("expected default environment, got %s", c.Environment)
	}
}
