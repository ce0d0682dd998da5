package redisq

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tartarus-sandbox/acheron/pkg/acheron"
	"github.com/tartarus-sandbox/acheron/pkg/hermes"
)

// Producer writes frames onto the main list and the delayed sorted set.
type Producer struct {
	client  *redis.Client
	cfg     Config
	metrics hermes.Metrics
}

func (p *Producer) SendRaw(ctx context.Context, payload []byte) error {
	frame := encodeFrame(payload, 0)
	if err := p.client.LPush(ctx, p.cfg.QueueKey, frame).Err(); err != nil {
		p.metrics.IncCounter("queue_send_errors_total", 1, p.queueLabel())
		return acheron.WrapBackend("lpush "+p.cfg.QueueKey, err)
	}

	p.metrics.IncCounter("queue_send_total", 1, p.queueLabel())
	if depth, err := p.client.LLen(ctx, p.cfg.QueueKey).Result(); err == nil {
		p.metrics.SetGauge("queue_depth", float64(depth), p.queueLabel())
	}
	return nil
}

func (p *Producer) SendScheduled(ctx context.Context, payload []byte, delay time.Duration) error {
	if delay <= 0 {
		return p.SendRaw(ctx, payload)
	}

	frame := encodeFrame(payload, 0)
	due := float64(time.Now().Add(delay).UnixMilli())
	err := p.client.ZAdd(ctx, p.cfg.DelayedQueueKey, redis.Z{
		Score:  due,
		Member: frame,
	}).Err()
	if err != nil {
		p.metrics.IncCounter("queue_send_errors_total", 1, p.queueLabel())
		return acheron.WrapBackend("zadd "+p.cfg.DelayedQueueKey, err)
	}

	p.metrics.IncCounter("queue_scheduled_total", 1, p.queueLabel())
	return nil
}

// RedriveDLQ re-frames every dead-lettered payload back onto the main list
// in arrival order. There is no transactional guarantee across the set:
// a failure mid-way leaves the remaining entries in the DLQ, and re-running
// is safe because each entry is removed with an exact-match LREM once its
// copy is on the main list.
func (p *Producer) RedriveDLQ(ctx context.Context) error {
	if !p.cfg.hasDLQ() {
		return nil
	}

	entries, err := p.client.LRange(ctx, p.cfg.dlqKey(), 0, -1).Result()
	if err != nil {
		return acheron.WrapBackend("lrange "+p.cfg.dlqKey(), err)
	}

	// Escalation LPUSHes, so the oldest payload sits at the tail.
	for i := len(entries) - 1; i >= 0; i-- {
		payload := entries[i]
		frame := encodeFrame([]byte(payload), 0)
		if err := p.client.LPush(ctx, p.cfg.QueueKey, frame).Err(); err != nil {
			return acheron.WrapBackend("lpush "+p.cfg.QueueKey, err)
		}
		if err := p.client.LRem(ctx, p.cfg.dlqKey(), 1, payload).Err(); err != nil {
			return acheron.WrapBackend("lrem "+p.cfg.dlqKey(), err)
		}
		p.metrics.IncCounter("queue_redrive_total", 1, p.queueLabel())
	}
	return nil
}

func (p *Producer) queueLabel() hermes.Label {
	return hermes.Label{Key: "queue", Value: p.cfg.QueueKey}
}

var _ acheron.Producer = (*Producer)(nil)
