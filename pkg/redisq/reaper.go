package redisq

import (
	"bytes"
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tartarus-sandbox/acheron/pkg/hermes"
)

const (
	reaperBatchSize = 50
	reaperIdleSleep = 500 * time.Millisecond
)

// reaper re-enqueues frames whose ack deadline has passed. It runs for the
// lifetime of the backend and treats every failure as retryable: errors are
// logged, never propagated.
type reaper struct {
	client  *redis.Client
	cfg     Config
	metrics hermes.Metrics
	logger  hermes.Logger
}

func (r *reaper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		busy, err := r.sweep(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error(ctx, "reaper sweep failed", map[string]any{
				"queue": r.cfg.QueueKey,
				"error": err.Error(),
			})
		}

		if err != nil || !busy {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reaperIdleSleep):
			}
		}
	}
}

// sweep reclaims one batch of overdue frames. The cheap 0..1 peek decides
// whether the batch scan is worth paying for; with an empty or fresh
// processing list nothing else runs.
func (r *reaper) sweep(ctx context.Context) (bool, error) {
	processingKey := r.cfg.ProcessingQueueKey()

	head, err := r.client.LRange(ctx, processingKey, 0, 1).Result()
	if err != nil {
		return false, err
	}

	validityLimit := frameIDLowerBound(time.Now().Add(-r.cfg.AckDeadline))
	if len(head) == 0 || bytes.Compare([]byte(head[0]), validityLimit) > 0 {
		return false, nil
	}

	entries, err := r.client.LRange(ctx, processingKey, 0, reaperBatchSize).Result()
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		frame := []byte(entry)
		if bytes.Compare(frame, validityLimit) > 0 {
			// Stop at the first entry that is not yet overdue. Claims are
			// pushed onto the head of the processing list, so entries behind
			// this one were claimed earlier, but their ids date from their
			// last write to the main list, so their order is not guaranteed.
			// Entries skipped here wait for a later sweep.
			break
		}

		payload, attempts, err := decodeFrame(frame)
		if err != nil {
			r.quarantine(ctx, frame, err)
			continue
		}

		attempts++
		if r.cfg.hasDLQ() && attempts >= r.cfg.maxReceives() {
			// DLQ entries are bare payloads: their consumers read them with
			// LRANGE, and redrive re-frames from scratch.
			if err := r.client.LPush(ctx, r.cfg.dlqKey(), payload).Err(); err != nil {
				return true, err
			}
			r.metrics.IncCounter("queue_dlq_total", 1, r.queueLabel())
		} else {
			if err := r.client.RPush(ctx, r.cfg.QueueKey, encodeFrame(payload, attempts)).Err(); err != nil {
				return true, err
			}
			r.metrics.IncCounter("queue_reap_total", 1, r.queueLabel())
		}

		if err := r.client.LRem(ctx, processingKey, 1, frame).Err(); err != nil {
			return true, err
		}
	}

	return true, nil
}

// quarantine removes a frame the codec cannot parse so it cannot wedge the
// sweep forever. With a DLQ configured the raw bytes are preserved there;
// otherwise the frame is dropped.
func (r *reaper) quarantine(ctx context.Context, frame []byte, cause error) {
	if r.cfg.hasDLQ() {
		if err := r.client.LPush(ctx, r.cfg.dlqKey(), frame).Err(); err != nil {
			r.logger.Error(ctx, "failed to quarantine malformed frame", map[string]any{
				"queue": r.cfg.QueueKey,
				"error": err.Error(),
			})
			return
		}
	}
	if err := r.client.LRem(ctx, r.cfg.ProcessingQueueKey(), 1, frame).Err(); err != nil {
		r.logger.Error(ctx, "failed to remove malformed frame", map[string]any{
			"queue": r.cfg.QueueKey,
			"error": err.Error(),
		})
		return
	}

	r.metrics.IncCounter("queue_malformed_total", 1, r.queueLabel())
	r.logger.Error(ctx, "quarantined malformed frame", map[string]any{
		"queue": r.cfg.QueueKey,
		"error": cause.Error(),
	})
}

func (r *reaper) queueLabel() hermes.Label {
	return hermes.Label{Key: "queue", Value: r.cfg.QueueKey}
}
