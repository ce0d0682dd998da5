package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Backend != "redis" {
		t.Errorf("Expected redis backend by default, got %s", cfg.Backend)
	}
	if cfg.QueueKey != "acheron" {
		t.Errorf("Expected default queue key, got %s", cfg.QueueKey)
	}
	if cfg.AckDeadlineMs != 30_000 {
		t.Errorf("Expected 30s default ack deadline, got %d", cfg.AckDeadlineMs)
	}
}

func TestRedisConfigMapping(t *testing.T) {
	t.Setenv("REDIS_DSN", "redis://example:6379")
	t.Setenv("QUEUE_KEY", "jobs")
	t.Setenv("ACK_DEADLINE_MS", "5000")
	t.Setenv("DLQ_KEY", "jobs-dlq")
	t.Setenv("DLQ_MAX_RECEIVES", "3")

	rc := Load().RedisConfig()

	if rc.DSN != "redis://example:6379" || rc.QueueKey != "jobs" {
		t.Errorf("Unexpected mapping: %+v", rc)
	}
	if rc.AckDeadline != 5*time.Second {
		t.Errorf("Expected 5s ack deadline, got %s", rc.AckDeadline)
	}
	if rc.DLQ == nil || rc.DLQ.QueueKey != "jobs-dlq" || rc.DLQ.MaxReceives != 3 {
		t.Errorf("Expected dlq config, got %+v", rc.DLQ)
	}
}

func TestRedisConfigWithoutDLQ(t *testing.T) {
	rc := Load().RedisConfig()
	if rc.DLQ != nil {
		t.Errorf("Expected no dlq config by default, got %+v", rc.DLQ)
	}
}
