package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/shared"
)

// InMemoryEventBus dispatches domain events synchronously to registered
// handlers within the same process. It backs the outbox processor, which
// provides the durability; the bus itself keeps no state between calls.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("eventbus"),
	}
}

// Publish delivers the events to every subscribed handler. Handlers run
// sequentially; the first handler error aborts delivery of the remaining
// events and is returned to the caller so the outbox can schedule a retry.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return fmt.Errorf("event bus is not running")
	}

	for _, event := range events {
		handlers := b.registry.HandlersFor(event.EventType())
		if len(handlers) == 0 {
			b.logger.Debug("no handlers for event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()))
			continue
		}

		for _, handler := range handlers {
			if err := b.dispatch(ctx, handler, event); err != nil {
				return fmt.Errorf("handling event %s (%s): %w",
					event.EventID(), event.EventType(), err)
			}
		}
	}
	return nil
}

// dispatch invokes a single handler, converting panics into errors so one
// misbehaving handler cannot take down the processor loop.
func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Any("panic", r))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

// Subscribe registers a handler for the given event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	b.registry.Register(handler, eventTypes...)
}

// Unsubscribe removes a handler from all subscriptions
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return fmt.Errorf("event bus already started")
	}
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Count()))
	return nil
}

// Stop marks the bus as stopped
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	b.logger.Info("event bus stopped")
	return nil
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
