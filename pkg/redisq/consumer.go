package redisq

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tartarus-sandbox/acheron/pkg/acheron"
	"github.com/tartarus-sandbox/acheron/pkg/hermes"
)

// Consumer claims frames by atomically moving them from the main list onto
// the processing list.
type Consumer struct {
	client  *redis.Client
	cfg     Config
	metrics hermes.Metrics
}

// Receive blocks until a frame is available. The returned delivery's acker
// holds the claimed frame verbatim; the exact bytes are what Ack later
// removes from the processing list.
func (c *Consumer) Receive(ctx context.Context) (*acheron.Delivery, error) {
	return c.claim(ctx, 0)
}

// ReceiveAll waits up to deadline for the first frame, then drains further
// frames without blocking until max is reached or the list is empty. An
// empty result is not an error.
func (c *Consumer) ReceiveAll(ctx context.Context, max int, deadline time.Duration) ([]*acheron.Delivery, error) {
	if max <= 0 {
		return nil, nil
	}

	first, err := c.claim(ctx, deadline)
	if err != nil {
		if errors.Is(err, acheron.ErrNoData) {
			return []*acheron.Delivery{}, nil
		}
		return nil, err
	}

	out := []*acheron.Delivery{first}
	for len(out) < max {
		res, err := c.client.RPopLPush(ctx, c.cfg.QueueKey, c.cfg.ProcessingQueueKey()).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return out, acheron.WrapBackend("rpoplpush "+c.cfg.QueueKey, err)
		}
		d, err := c.toDelivery([]byte(res))
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
	return out, nil
}

// MaxMessages reports no batch cap for this engine.
func (c *Consumer) MaxMessages() int {
	return 0
}

func (c *Consumer) claim(ctx context.Context, timeout time.Duration) (*acheron.Delivery, error) {
	res, err := c.client.BRPopLPush(ctx, c.cfg.QueueKey, c.cfg.ProcessingQueueKey(), timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, acheron.ErrNoData
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, acheron.WrapBackend("brpoplpush "+c.cfg.QueueKey, err)
	}
	return c.toDelivery([]byte(res))
}

func (c *Consumer) toDelivery(frame []byte) (*acheron.Delivery, error) {
	payload, attempts, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}

	c.metrics.IncCounter("queue_receive_total", 1, hermes.Label{Key: "queue", Value: c.cfg.QueueKey})

	return acheron.NewDelivery(payload, &redisAcker{
		client:         c.client,
		queueKey:       c.cfg.QueueKey,
		processingKey:  c.cfg.ProcessingQueueKey(),
		dlqKey:         c.cfg.dlqKey(),
		oldFrame:       frame,
		payload:        payload,
		attempts:       attempts,
		maxReceives:    c.cfg.maxReceives(),
		hasDLQ:         c.cfg.hasDLQ(),
		reinsertOnNack: c.cfg.ReinsertOnNack,
		metrics:        c.metrics,
	}), nil
}

var _ acheron.Consumer = (*Consumer)(nil)
