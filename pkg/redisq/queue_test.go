package redisq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tartarus-sandbox/acheron/pkg/acheron"
)

func startBackend(t *testing.T, mutate func(*Config)) *Backend {
	t.Helper()

	s := miniredis.RunT(t)
	cfg := Config{
		DSN:         s.Addr(),
		QueueKey:    "test-queue",
		AckDeadline: time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	b, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestRoundTripRawPayload(t *testing.T) {
	b := startBackend(t, nil)
	ctx := context.Background()
	payload := []byte(`{"test":"data"}`)

	if err := b.Producer().SendRaw(ctx, payload); err != nil {
		t.Fatalf("SendRaw failed: %v", err)
	}

	d, err := b.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(d.Payload()) != string(payload) {
		t.Errorf("Expected payload %s, got %s", payload, d.Payload())
	}

	if err := d.Ack(ctx); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	// Ack must remove the exact claimed frame from the processing list.
	left, err := b.client.LRange(ctx, b.cfg.ProcessingQueueKey(), 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("Expected empty processing list after ack, got %v", left)
	}
}

func TestReceiveJSON(t *testing.T) {
	b := startBackend(t, nil)
	ctx := context.Background()

	type exType struct {
		A int `json:"a"`
	}

	if err := acheron.SendJSON(ctx, b.Producer(), exType{A: 2}); err != nil {
		t.Fatalf("SendJSON failed: %v", err)
	}

	d, err := b.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	var got exType
	if err := d.JSON(&got); err != nil {
		t.Fatalf("JSON decode failed: %v", err)
	}
	if got.A != 2 {
		t.Errorf("Expected a=2, got %d", got.A)
	}
	if err := d.Ack(ctx); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}
}

func TestReceiveAllDrainsBatch(t *testing.T) {
	b := startBackend(t, nil)
	ctx := context.Background()

	for _, payload := range []string{"p1", "p2", "p3"} {
		if err := b.Producer().SendRaw(ctx, []byte(payload)); err != nil {
			t.Fatalf("SendRaw failed: %v", err)
		}
	}

	ds, err := b.Consumer().ReceiveAll(ctx, 2, time.Second)
	if err != nil {
		t.Fatalf("ReceiveAll failed: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", len(ds))
	}
	if string(ds[0].Payload()) != "p1" || string(ds[1].Payload()) != "p2" {
		t.Errorf("Expected p1, p2 in order, got %s, %s", ds[0].Payload(), ds[1].Payload())
	}
	for _, d := range ds {
		if err := d.Ack(ctx); err != nil {
			t.Fatalf("Ack failed: %v", err)
		}
	}

	ds, err = b.Consumer().ReceiveAll(ctx, 2, time.Second)
	if err != nil {
		t.Fatalf("ReceiveAll failed: %v", err)
	}
	if len(ds) != 1 || string(ds[0].Payload()) != "p3" {
		t.Fatalf("Expected the remaining p3, got %d deliveries", len(ds))
	}
	if err := ds[0].Ack(ctx); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}
}

func TestReceiveAllEmptyQueue(t *testing.T) {
	b := startBackend(t, nil)
	ctx := context.Background()

	ds, err := b.Consumer().ReceiveAll(ctx, 2, time.Second)
	if err != nil {
		t.Fatalf("ReceiveAll failed: %v", err)
	}
	if len(ds) != 0 {
		t.Errorf("Expected no deliveries from an empty queue, got %d", len(ds))
	}
}

func TestDoubleFinalize(t *testing.T) {
	b := startBackend(t, nil)
	ctx := context.Background()

	send := func(payload string) {
		if err := b.Producer().SendRaw(ctx, []byte(payload)); err != nil {
			t.Fatalf("SendRaw failed: %v", err)
		}
	}

	send("first")
	d, err := b.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if err := d.Ack(ctx); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}
	assertDoubleFinalize(t, d.Ack(ctx))
	assertDoubleFinalize(t, d.Nack(ctx))

	send("second")
	d, err = b.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if err := d.Nack(ctx); err != nil {
		t.Fatalf("Nack failed: %v", err)
	}
	assertDoubleFinalize(t, d.Nack(ctx))
	assertDoubleFinalize(t, d.Ack(ctx))
}

func TestPendingRedelivery(t *testing.T) {
	b := startBackend(t, func(cfg *Config) {
		cfg.AckDeadline = 2 * time.Second
	})
	ctx := context.Background()

	if err := b.Producer().SendRaw(ctx, []byte("p1")); err != nil {
		t.Fatalf("SendRaw failed: %v", err)
	}
	if err := b.Producer().SendRaw(ctx, []byte("p2")); err != nil {
		t.Fatalf("SendRaw failed: %v", err)
	}

	d1, err := b.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	d2, err := b.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	// Everything is claimed; nothing should be deliverable right now.
	ds, err := b.Consumer().ReceiveAll(ctx, 1, time.Second)
	if err != nil {
		t.Fatalf("ReceiveAll failed: %v", err)
	}
	if len(ds) != 0 {
		t.Fatalf("Expected nothing deliverable while claimed, got %d", len(ds))
	}

	if string(d1.Payload()) != "p1" || string(d2.Payload()) != "p2" {
		t.Fatalf("Unexpected payloads %s, %s", d1.Payload(), d2.Payload())
	}

	// Ack only the second; the first must come back via the reaper.
	if err := d2.Ack(ctx); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	d3, err := b.Consumer().Receive(recvCtx)
	if err != nil {
		t.Fatalf("Receive after deadline failed: %v", err)
	}
	if string(d3.Payload()) != "p1" {
		t.Errorf("Expected redelivered p1, got %s", d3.Payload())
	}
	if err := d3.Ack(ctx); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	ds, err = b.Consumer().ReceiveAll(ctx, 1, time.Second)
	if err != nil {
		t.Fatalf("ReceiveAll failed: %v", err)
	}
	if len(ds) != 0 {
		t.Errorf("Expected the queue to be empty again, got %d deliveries", len(ds))
	}
}

func TestReinsertOnNack(t *testing.T) {
	b := startBackend(t, func(cfg *Config) {
		cfg.ReinsertOnNack = true
	})
	ctx := context.Background()

	if err := b.Producer().SendRaw(ctx, []byte("retry-me")); err != nil {
		t.Fatalf("SendRaw failed: %v", err)
	}

	d, err := b.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if err := d.Nack(ctx); err != nil {
		t.Fatalf("Nack failed: %v", err)
	}

	// The frame must be back on main immediately, not waiting on the reaper.
	ds, err := b.Consumer().ReceiveAll(ctx, 1, time.Second)
	if err != nil {
		t.Fatalf("ReceiveAll failed: %v", err)
	}
	if len(ds) != 1 || string(ds[0].Payload()) != "retry-me" {
		t.Fatalf("Expected immediate redelivery, got %d deliveries", len(ds))
	}

	// And the processing list must not still hold the nacked claim.
	left, err := b.client.LRange(ctx, b.cfg.ProcessingQueueKey(), 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("Expected only the new claim in processing, got %d entries", len(left))
	}
}

func TestConfigValidation(t *testing.T) {
	s := miniredis.RunT(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing queue key", func(cfg *Config) { cfg.QueueKey = "" }},
		{"zero ack deadline", func(cfg *Config) { cfg.AckDeadline = 0 }},
		{"negative ack deadline", func(cfg *Config) { cfg.AckDeadline = -time.Second }},
		{"dlq without key", func(cfg *Config) { cfg.DLQ = &DLQConfig{MaxReceives: 5} }},
		{"dlq without max receives", func(cfg *Config) { cfg.DLQ = &DLQConfig{QueueKey: "dlq"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{DSN: s.Addr(), QueueKey: "q", AckDeadline: time.Second}
			tc.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("Expected config validation error")
			}
		})
	}
}

func TestStats(t *testing.T) {
	b := startBackend(t, func(cfg *Config) {
		cfg.DLQ = &DLQConfig{QueueKey: "test-queue-dlq", MaxReceives: 5}
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Producer().SendRaw(ctx, []byte{byte('a' + i)}); err != nil {
			t.Fatalf("SendRaw failed: %v", err)
		}
	}
	if _, err := b.Consumer().Receive(ctx); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if err := b.Producer().SendScheduled(ctx, []byte("later"), time.Hour); err != nil {
		t.Fatalf("SendScheduled failed: %v", err)
	}

	stats, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Ready != 2 || stats.Processing != 1 || stats.Delayed != 1 || stats.DeadLettered != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func assertDoubleFinalize(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, acheron.ErrDoubleFinalize) {
		t.Fatalf("Expected double-finalize error, got %v", err)
	}
}
