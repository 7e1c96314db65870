package messaging

import (
	"log/slog"
	"sync"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-PROCESS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// EventBus is a synchronous in-process implementation of shared.EventPublisher.
// Handlers run on the publisher's goroutine; a panicking handler is recovered
// and logged so one subscriber cannot take down a command.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[shared.EventType][]shared.EventHandler
	logger   *slog.Logger
}

// NewEventBus creates an empty event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the given event type.
func (b *EventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish implements shared.EventPublisher.
func (b *EventBus) Publish(event shared.Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.EventType()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(handler, event)
	}

	return nil
}

func (b *EventBus) invoke(handler shared.EventHandler, event shared.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", string(event.EventType()),
				"panic", r,
			)
		}
	}()

	handler(event)
}
