package acheron

import (
	"context"
	"time"
)

// Acheron is the river all messages must cross: a single producer/consumer
// contract with pluggable broker backends. Applications program against
// Producer and Consumer; the backend packages provide the semantics.

// Producer enqueues opaque payloads onto a queue.
type Producer interface {
	// SendRaw enqueues payload for immediate delivery.
	SendRaw(ctx context.Context, payload []byte) error

	// SendScheduled enqueues payload so that it becomes deliverable no
	// earlier than delay from now. A zero delay is equivalent to SendRaw.
	SendScheduled(ctx context.Context, payload []byte, delay time.Duration) error

	// RedriveDLQ moves dead-lettered payloads back onto the main queue in
	// their original arrival order. Backends without a redrive facility
	// return ErrUnsupported.
	RedriveDLQ(ctx context.Context) error
}

// Consumer claims deliveries from a queue.
type Consumer interface {
	// Receive blocks until a delivery is available or ctx is done.
	Receive(ctx context.Context) (*Delivery, error)

	// ReceiveAll claims up to max deliveries, waiting at most deadline for
	// the first one. It returns an empty slice, not an error, when nothing
	// arrives in time.
	ReceiveAll(ctx context.Context, max int, deadline time.Duration) ([]*Delivery, error)

	// MaxMessages reports the backend's per-call batch cap, or 0 when the
	// backend imposes none.
	MaxMessages() int
}

// SendBytes is an alias for Producer.SendRaw kept for callers that want the
// intent spelled out at the call site.
func SendBytes(ctx context.Context, p Producer, payload []byte) error {
	return p.SendRaw(ctx, payload)
}

// ReceiveBatch clamps max to the consumer's batch cap before delegating to
// ReceiveAll.
func ReceiveBatch(ctx context.Context, c Consumer, max int, deadline time.Duration) ([]*Delivery, error) {
	if limit := c.MaxMessages(); limit > 0 && max > limit {
		max = limit
	}
	return c.ReceiveAll(ctx, max, deadline)
}
