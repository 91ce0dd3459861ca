package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
)

// EventSerializer converts domain events to and from their outbox payload
// representation. Event types must be registered before deserialization so
// the serializer knows which concrete type to instantiate.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer creates a serializer with no registered types
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		types: make(map[string]reflect.Type),
	}
}

// NewDomainEventSerializer creates a serializer with every public event
// type registered.
func NewDomainEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(inventory.EventTypeInventoryUpdated, &inventory.InventoryUpdatedEvent{})
	s.Register(inventory.EventTypeLowStockAlert, &inventory.LowStockAlertEvent{})
	s.Register(sales.EventTypeSaleCreated, &sales.SaleCreatedEvent{})
	s.Register(sales.EventTypeSaleReversed, &sales.SaleReversedEvent{})
	s.Register(transfer.EventTypeTransferStateChanged, &transfer.TransferStateChangedEvent{})
	return s
}

// Register associates an event type name with a concrete event instance.
// The instance is only used to capture the type; pass a pointer.
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.types[eventType] = t
}

// Serialize converts a domain event to its JSON payload
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serializing event %s: %w", event.EventType(), err)
	}
	return payload, nil
}

// Deserialize reconstructs a domain event from its type name and payload
func (s *EventSerializer) Deserialize(eventType string, payload []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	instance := reflect.New(t).Interface()
	if err := json.Unmarshal(payload, instance); err != nil {
		return nil, fmt.Errorf("deserializing event %s: %w", eventType, err)
	}

	event, ok := instance.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type for %q does not implement DomainEvent", eventType)
	}
	return event, nil
}

// IsRegistered reports whether an event type is known to the serializer
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}
