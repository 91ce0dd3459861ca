package shared

import "context"

// EventHandler consumes delivered domain events
type EventHandler interface {
	// Handle processes one event. Returning an error leaves the event
	// eligible for redelivery.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes names the event types the handler wants. Empty means
	// everything.
	EventTypes() []string
}

// EventPublisher hands domain events to the delivery pipeline
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations
type EventSubscriber interface {
	// Subscribe registers a handler, optionally narrowed to the given
	// event types.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe drops a handler from every registration
	Unsubscribe(handler EventHandler)
}

// EventBus is a publish/subscribe channel with a lifecycle
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes domain events into the outbox table inside
// the caller's transaction, so a sale and its events commit or roll
// back together.
type OutboxEventSaver interface {
	// SaveEvents persists events through txProvider, which must be the
	// open *gorm.DB transaction.
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
