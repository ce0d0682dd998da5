package redisq

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tartarus-sandbox/acheron/pkg/hermes"
)

const (
	promoterInterval     = 100 * time.Millisecond
	promoterErrorBackoff = 500 * time.Millisecond
	promoterLockTTL      = time.Second
)

// releaseLockScript deletes the promoter lock only if this instance still
// holds it, so an instance that overran the TTL cannot release a lock taken
// over by another.
// KEYS[1]: lock key
// ARGV[1]: lock token
var releaseLockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// promoter moves due frames from the delayed sorted set onto the main list.
// Multiple processes may run promoters against the same queue; the SET NX
// lock keeps them from double-promoting within a cycle, and the per-frame
// LPUSH+ZREM pair means a crash mid-batch costs at most a duplicate.
type promoter struct {
	client  *redis.Client
	cfg     Config
	metrics hermes.Metrics
	logger  hermes.Logger
}

func (p *promoter) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		sleep := promoterInterval
		if err := p.promote(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error(ctx, "delayed promotion failed", map[string]any{
				"queue": p.cfg.QueueKey,
				"error": err.Error(),
			})
			sleep = promoterErrorBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (p *promoter) promote(ctx context.Context) error {
	token := uuid.NewString()
	locked, err := p.client.SetNX(ctx, p.cfg.DelayedLockKey, token, promoterLockTTL).Result()
	if err != nil {
		return err
	}
	if !locked {
		// Another promoter holds the lock; try again next cycle.
		return nil
	}
	defer func() {
		_ = releaseLockScript.Run(context.WithoutCancel(ctx), p.client,
			[]string{p.cfg.DelayedLockKey}, token).Err()
	}()

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := p.client.ZRangeByScore(ctx, p.cfg.DelayedQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range due {
		frame := []byte(member)

		// Fresh id on promotion: the embedded timestamp must say "became
		// deliverable now", or the reaper would treat a long-scheduled frame
		// as instantly overdue once claimed.
		fresh, err := regenerateFrame(frame, 0)
		if err != nil {
			p.logger.Error(ctx, "dropping malformed delayed frame", map[string]any{
				"queue": p.cfg.QueueKey,
				"error": err.Error(),
			})
			_ = p.client.ZRem(ctx, p.cfg.DelayedQueueKey, member).Err()
			continue
		}

		if err := p.client.LPush(ctx, p.cfg.QueueKey, fresh).Err(); err != nil {
			return err
		}
		if err := p.client.ZRem(ctx, p.cfg.DelayedQueueKey, member).Err(); err != nil {
			return err
		}
		p.metrics.IncCounter("queue_promoted_total", 1, hermes.Label{Key: "queue", Value: p.cfg.QueueKey})
	}
	return nil
}
