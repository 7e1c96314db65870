package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/univer-hub/rector-task-bot/internal/domain/notification"
	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

func newTestNotification(t *testing.T, recipient int64) *notification.Notification {
	t.Helper()
	n, err := notification.NewNotification(notification.NewNotificationParams{
		ID:          notification.NotificationID(uuid.NewString()),
		Type:        notification.NotificationTypeTaskAssigned,
		RecipientID: shared.TelegramID(recipient),
		Message:     "📋 Новая задача: Подготовить отчёт",
	})
	assert.NoError(t, err)
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Memory queue
// ─────────────────────────────────────────────────────────────────────────────

func TestMemoryQueueEnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(8)
	ctx := context.Background()

	first := newTestNotification(t, 100)
	second := newTestNotification(t, 200)

	assert.NoError(t, q.Enqueue(ctx, first))
	assert.NoError(t, q.Enqueue(ctx, second))
	assert.Equal(t, 2, q.Len())

	got, err := q.Dequeue(ctx)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, notification.DeliveryQueued, got.Status)

	got, err = q.Dequeue(ctx)
	assert.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestMemoryQueueDequeueRespectsContext(t *testing.T) {
	q := NewMemoryQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueueClose(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	n := newTestNotification(t, 100)
	assert.NoError(t, q.Enqueue(ctx, n))
	assert.NoError(t, q.Close())

	// Pending items survive the close.
	got, err := q.Dequeue(ctx)
	assert.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	// After draining, the closed queue reports it.
	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, shared.ErrQueueClosed)

	assert.ErrorIs(t, q.Enqueue(ctx, newTestNotification(t, 200)), shared.ErrQueueClosed)
}

func TestMemoryQueueCloseUnblocksFullEnqueue(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()

	assert.NoError(t, q.Enqueue(ctx, newTestNotification(t, 100)))

	// Second Enqueue blocks on the full queue until Close releases it.
	result := make(chan error, 1)
	go func() {
		result <- q.Enqueue(ctx, newTestNotification(t, 200))
	}()

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, q.Close())

	select {
	case err := <-result:
		assert.ErrorIs(t, err, shared.ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("enqueue did not return after close")
	}

	// The item queued before the close is still deliverable.
	got, err := q.Dequeue(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), got.RecipientID.Int64())
}

// ─────────────────────────────────────────────────────────────────────────────
// Memory dedupe
// ─────────────────────────────────────────────────────────────────────────────

func TestMemoryDedupeMarkOnce(t *testing.T) {
	d := NewMemoryDedupe()
	ctx := context.Background()

	first, err := d.MarkOnce(ctx, "reminder:task-1:100", time.Minute)
	assert.NoError(t, err)
	assert.True(t, first)

	repeat, err := d.MarkOnce(ctx, "reminder:task-1:100", time.Minute)
	assert.NoError(t, err)
	assert.False(t, repeat)

	other, err := d.MarkOnce(ctx, "reminder:task-1:200", time.Minute)
	assert.NoError(t, err)
	assert.True(t, other)
}

func TestMemoryDedupeExpiry(t *testing.T) {
	d := NewMemoryDedupe()
	current := time.Now()
	d.now = func() time.Time { return current }
	ctx := context.Background()

	first, _ := d.MarkOnce(ctx, "key", time.Minute)
	assert.True(t, first)

	current = current.Add(30 * time.Second)
	within, _ := d.MarkOnce(ctx, "key", time.Minute)
	assert.False(t, within)

	current = current.Add(2 * time.Minute)
	after, _ := d.MarkOnce(ctx, "key", time.Minute)
	assert.True(t, after)
}

// ─────────────────────────────────────────────────────────────────────────────
// Event bus
// ─────────────────────────────────────────────────────────────────────────────

type testEvent struct {
	shared.BaseEvent
}

func TestEventBusPublishReachesSubscribers(t *testing.T) {
	bus := NewEventBus(nil)

	var mu sync.Mutex
	var received []shared.EventType

	bus.Subscribe(shared.EventTaskCreated, func(e shared.Event) {
		mu.Lock()
		received = append(received, e.EventType())
		mu.Unlock()
	})
	bus.Subscribe(shared.EventTaskCreated, func(e shared.Event) {
		mu.Lock()
		received = append(received, e.EventType())
		mu.Unlock()
	})

	err := bus.Publish(testEvent{shared.NewBaseEvent(shared.EventTaskCreated, "task-1")})
	assert.NoError(t, err)
	assert.Len(t, received, 2)
}

func TestEventBusIgnoresUnsubscribedTypes(t *testing.T) {
	bus := NewEventBus(nil)

	called := false
	bus.Subscribe(shared.EventTaskDeleted, func(shared.Event) { called = true })

	err := bus.Publish(testEvent{shared.NewBaseEvent(shared.EventTaskCreated, "task-1")})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestEventBusRecoversPanickingHandler(t *testing.T) {
	bus := NewEventBus(nil)

	bus.Subscribe(shared.EventTaskCreated, func(shared.Event) { panic("boom") })

	survived := false
	bus.Subscribe(shared.EventTaskCreated, func(shared.Event) { survived = true })

	err := bus.Publish(testEvent{shared.NewBaseEvent(shared.EventTaskCreated, "task-1")})
	assert.NoError(t, err)
	assert.True(t, survived)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dispatcher
// ─────────────────────────────────────────────────────────────────────────────

type recordingSender struct {
	mu        sync.Mutex
	delivered []*notification.Notification
	fail      bool
}

func (s *recordingSender) Send(_ context.Context, n *notification.Notification) notification.DeliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return notification.NewFailureResult(errors.New("telegram unavailable"), false)
	}
	s.delivered = append(s.delivered, n)
	return notification.NewSuccessResult(int64(len(s.delivered)))
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func TestDispatcherDeliversQueuedNotifications(t *testing.T) {
	queue := NewMemoryQueue(8)
	sender := &recordingSender{}

	d := NewDispatcher(DispatcherConfig{
		Queue:   queue,
		Sender:  sender,
		Workers: 2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := int64(1); i <= 3; i++ {
		assert.NoError(t, queue.Enqueue(ctx, newTestNotification(t, 100+i)))
	}

	assert.Eventually(t, func() bool {
		return sender.count() == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	d.Stop()

	m := d.Metrics()
	assert.Equal(t, int64(3), m.Delivered)
	assert.Equal(t, int64(0), m.Failed)
}

func TestDispatcherCountsFailures(t *testing.T) {
	queue := NewMemoryQueue(8)
	sender := &recordingSender{fail: true}

	d := NewDispatcher(DispatcherConfig{
		Queue:   queue,
		Sender:  sender,
		Workers: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	assert.NoError(t, queue.Enqueue(ctx, newTestNotification(t, 100)))

	assert.Eventually(t, func() bool {
		return d.Metrics().Failed >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	d.Stop()
}
