package redisq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tartarus-sandbox/acheron/pkg/hermes"
)

// Backend is the list-based queue engine: two ordinary Redis lists plus a
// sorted set, with visibility-timeout redelivery and DLQ escalation built in
// software. Use it where Redis streams are unavailable; the semantics are
// at-least-once, with FIFO ordering only up to the first redelivery.
type Backend struct {
	client  *redis.Client
	cfg     Config
	metrics hermes.Metrics
	logger  hermes.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

type options struct {
	metrics hermes.Metrics
	logger  hermes.Logger
}

type Option func(*options)

func WithMetrics(m hermes.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l hermes.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New connects to Redis, verifies the connection, and starts the reaper and
// delayed-queue promoter. Close stops both and releases the pool.
func New(cfg Config, opts ...Option) (*Backend, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := options{
		metrics: hermes.NewNoopMetrics(),
		logger:  hermes.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	b := &Backend{
		client:  client,
		cfg:     cfg,
		metrics: o.metrics,
		logger:  o.logger,
		cancel:  cancel,
		group:   group,
	}

	// The service loops own their own view of the config and never return
	// an error; they log and retry until the backend is closed.
	rp := &reaper{client: client, cfg: cfg, metrics: o.metrics, logger: o.logger}
	pm := &promoter{client: client, cfg: cfg, metrics: o.metrics, logger: o.logger}
	group.Go(func() error {
		rp.run(ctx)
		return nil
	})
	group.Go(func() error {
		pm.run(ctx)
		return nil
	})

	return b, nil
}

func newClient(cfg Config) (*redis.Client, error) {
	if strings.Contains(cfg.DSN, "://") {
		opt, err := redis.ParseURL(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis dsn: %w", err)
		}
		opt.PoolSize = cfg.MaxConnections
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.DSN,
		PoolSize: cfg.MaxConnections,
	}), nil
}

// Producer returns a producer bound to this backend's queue.
func (b *Backend) Producer() *Producer {
	return &Producer{client: b.client, cfg: b.cfg, metrics: b.metrics}
}

// Consumer returns a consumer bound to this backend's queue.
func (b *Backend) Consumer() *Consumer {
	return &Consumer{client: b.client, cfg: b.cfg, metrics: b.metrics}
}

// Stats reports the depth of each of the queue's four keys.
type Stats struct {
	Ready        int64
	Processing   int64
	Delayed      int64
	DeadLettered int64
}

func (b *Backend) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error

	if s.Ready, err = b.client.LLen(ctx, b.cfg.QueueKey).Result(); err != nil {
		return s, fmt.Errorf("failed to read queue depth: %w", err)
	}
	if s.Processing, err = b.client.LLen(ctx, b.cfg.ProcessingQueueKey()).Result(); err != nil {
		return s, fmt.Errorf("failed to read processing depth: %w", err)
	}
	if s.Delayed, err = b.client.ZCard(ctx, b.cfg.DelayedQueueKey).Result(); err != nil {
		return s, fmt.Errorf("failed to read delayed depth: %w", err)
	}
	if b.cfg.hasDLQ() {
		if s.DeadLettered, err = b.client.LLen(ctx, b.cfg.dlqKey()).Result(); err != nil {
			return s, fmt.Errorf("failed to read dlq depth: %w", err)
		}
	}
	return s, nil
}

// Close stops the background loops and closes the connection pool.
func (b *Backend) Close() error {
	b.cancel()
	_ = b.group.Wait()
	return b.client.Close()
}
