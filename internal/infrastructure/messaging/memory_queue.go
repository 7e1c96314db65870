// Package messaging implements notification delivery between the
// application layer and the Telegram worker.
package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// MemoryQueue implements notification.Queue with a buffered channel.
// Used in development when Redis is disabled, and in tests.
// Contents are lost on restart.
//
// Closure is signalled via a separate done channel; the data channel is
// never closed, so an Enqueue blocked on a full queue cannot panic when
// Close races it.
type MemoryQueue struct {
	ch   chan *notification.Notification
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates an in-memory queue with the given capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		ch:   make(chan *notification.Notification, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue puts a notification on the queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, n *notification.Notification) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return shared.ErrQueueClosed
	}
	q.mu.Unlock()

	if err := n.MarkQueued(); err != nil {
		return err
	}

	select {
	case q.ch <- n:
		return nil
	case <-q.done:
		return shared.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a notification arrives, the queue closes,
// or the context is cancelled. A closed queue drains its pending
// items before reporting shared.ErrQueueClosed.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*notification.Notification, error) {
	select {
	case n := <-q.ch:
		return n, nil
	case <-q.done:
		select {
		case n := <-q.ch:
			return n, nil
		default:
			return nil, shared.ErrQueueClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the queue. Pending items can still be dequeued.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// Len returns the current queue depth.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY DEDUPE
// ══════════════════════════════════════════════════════════════════════════════

// MemoryDedupe implements notification.Deduplicator in process memory.
// Expiry is checked lazily on access.
type MemoryDedupe struct {
	mu   sync.Mutex
	seen map[string]time.Time // key -> expiry
	now  func() time.Time
}

// NewMemoryDedupe creates an in-memory deduplicator.
func NewMemoryDedupe() *MemoryDedupe {
	return &MemoryDedupe{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// MarkOnce returns true the first time key is seen within ttl.
func (d *MemoryDedupe) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expiry, ok := d.seen[key]; ok && expiry.After(now) {
		return false, nil
	}
	d.seen[key] = now.Add(ttl)
	return true, nil
}
