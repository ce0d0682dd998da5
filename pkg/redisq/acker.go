package redisq

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tartarus-sandbox/acheron/pkg/acheron"
	"github.com/tartarus-sandbox/acheron/pkg/hermes"
)

// deadLetterScript atomically moves an exhausted frame's payload to the DLQ
// and drops the frame from the processing list, so a racing reaper cannot
// observe the frame half-moved.
// KEYS[1]: dlq key
// KEYS[2]: processing key
// ARGV[1]: bare payload
// ARGV[2]: claimed frame
var deadLetterScript = redis.NewScript(`
	redis.call("LPUSH", KEYS[1], ARGV[1])
	redis.call("LREM", KEYS[2], 1, ARGV[2])
	return 1
`)

// redisAcker finalizes one delivery. It deletes by the exact frame bytes the
// consumer claimed -- the attempt counter is part of the frame, so nothing
// else can match -- which is what makes a consumer/reaper race resolve to a
// single winner.
type redisAcker struct {
	client        *redis.Client
	queueKey      string
	processingKey string
	dlqKey        string

	oldFrame []byte
	payload  []byte

	attempts    int
	maxReceives int
	hasDLQ      bool

	reinsertOnNack bool

	finalized bool
	metrics   hermes.Metrics
}

func (a *redisAcker) Ack(ctx context.Context) error {
	if a.finalized {
		return acheron.ErrDoubleFinalize
	}

	// LREM count 0 means someone else (the reaper) already claimed the
	// frame back; that is a benign outcome of at-least-once delivery.
	if err := a.client.LRem(ctx, a.processingKey, 1, a.oldFrame).Err(); err != nil {
		return acheron.WrapBackend("lrem "+a.processingKey, err)
	}

	a.finalized = true
	a.metrics.IncCounter("queue_ack_total", 1, a.queueLabel())
	return nil
}

func (a *redisAcker) Nack(ctx context.Context) error {
	if a.finalized {
		return acheron.ErrDoubleFinalize
	}

	// Terminal nack: the attempt budget is spent, so escalate directly
	// instead of dropping the frame and racing the reaper for it.
	if a.hasDLQ && a.attempts+1 >= a.maxReceives {
		err := deadLetterScript.Run(ctx, a.client,
			[]string{a.dlqKey, a.processingKey},
			a.payload, a.oldFrame,
		).Err()
		if err != nil {
			return acheron.WrapBackend("dead-letter "+a.dlqKey, err)
		}
		a.finalized = true
		a.metrics.IncCounter("queue_dlq_total", 1, a.queueLabel())
		return nil
	}

	if a.reinsertOnNack {
		frame := encodeFrame(a.payload, a.attempts)
		pipe := a.client.TxPipeline()
		pipe.LPush(ctx, a.queueKey, frame)
		pipe.LRem(ctx, a.processingKey, 1, a.oldFrame)
		if _, err := pipe.Exec(ctx); err != nil {
			return acheron.WrapBackend("reinsert "+a.queueKey, err)
		}
	}
	// Otherwise leave the frame on the processing list; the reaper
	// re-enqueues it once the ack deadline passes.

	a.finalized = true
	a.metrics.IncCounter("queue_nack_total", 1, a.queueLabel())
	return nil
}

func (a *redisAcker) SetAckDeadline(ctx context.Context, d time.Duration) error {
	return acheron.ErrUnsupported
}

func (a *redisAcker) queueLabel() hermes.Label {
	return hermes.Label{Key: "queue", Value: a.queueKey}
}

var _ acheron.Acker = (*redisAcker)(nil)
