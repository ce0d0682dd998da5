package acheron

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryQueue is an in-process implementation of Producer and Consumer for
// tests and local development. Claimed payloads are tracked in a receipt map
// so Ack/Nack stay O(1), matching the broker-backed implementations.
type MemoryQueue struct {
	mu         sync.Mutex
	items      [][]byte
	processing map[string][]byte
	cond       *sync.Cond
	nextID     int
}

func NewMemoryQueue() *MemoryQueue {
	q := &MemoryQueue{
		processing: make(map[string][]byte),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *MemoryQueue) SendRaw(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, append([]byte(nil), payload...))
	q.cond.Signal()
	return nil
}

func (q *MemoryQueue) SendScheduled(ctx context.Context, payload []byte, delay time.Duration) error {
	if delay <= 0 {
		return q.SendRaw(ctx, payload)
	}
	buf := append([]byte(nil), payload...)
	time.AfterFunc(delay, func() {
		_ = q.SendRaw(context.Background(), buf)
	})
	return nil
}

// RedriveDLQ is not applicable: the memory queue never dead-letters.
func (q *MemoryQueue) RedriveDLQ(ctx context.Context) error {
	return ErrUnsupported
}

func (q *MemoryQueue) Receive(ctx context.Context) (*Delivery, error) {
	// Wake the cond loop when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		q.cond.Wait()
	}

	return q.claimLocked(), nil
}

func (q *MemoryQueue) ReceiveAll(ctx context.Context, max int, deadline time.Duration) ([]*Delivery, error) {
	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	first, err := q.Receive(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	out := []*Delivery{first}
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(out) < max && len(q.items) > 0 {
		out = append(out, q.claimLocked())
	}
	return out, nil
}

// MaxMessages reports no batch cap.
func (q *MemoryQueue) MaxMessages() int {
	return 0
}

// Len returns the current depth, pending plus in-flight.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) + len(q.processing)
}

func (q *MemoryQueue) claimLocked() *Delivery {
	item := q.items[0]
	q.items = q.items[1:]

	q.nextID++
	receipt := fmt.Sprintf("receipt-%d", q.nextID)
	q.processing[receipt] = item

	return NewDelivery(item, &memoryAcker{queue: q, receipt: receipt})
}

type memoryAcker struct {
	queue     *MemoryQueue
	receipt   string
	finalized bool
}

func (a *memoryAcker) Ack(ctx context.Context) error {
	a.queue.mu.Lock()
	defer a.queue.mu.Unlock()
	if a.finalized {
		return ErrDoubleFinalize
	}
	a.finalized = true
	delete(a.queue.processing, a.receipt)
	return nil
}

func (a *memoryAcker) Nack(ctx context.Context) error {
	a.queue.mu.Lock()
	defer a.queue.mu.Unlock()
	if a.finalized {
		return ErrDoubleFinalize
	}
	a.finalized = true

	item, exists := a.queue.processing[a.receipt]
	if !exists {
		return nil
	}
	delete(a.queue.processing, a.receipt)
	a.queue.items = append(a.queue.items, item)
	a.queue.cond.Signal()
	return nil
}

func (a *memoryAcker) SetAckDeadline(ctx context.Context, d time.Duration) error {
	return ErrUnsupported
}

var (
	_ Producer = (*MemoryQueue)(nil)
	_ Consumer = (*MemoryQueue)(nil)
)
