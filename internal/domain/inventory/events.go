package inventory

import (
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeStockRecord = "StockRecord"

// Event type constants. These names are the public contract consumed by
// downstream notifiers.
const (
	EventTypeInventoryUpdated = "inventory.updated"
	EventTypeLowStockAlert    = "lowstock.alert"
)

// InventoryUpdatedEvent is raised after every successful stock mutation
type InventoryUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID `json:"product_id"`
	BranchID    uuid.UUID `json:"branch_id"`
	NewQuantity int64     `json:"new_quantity"`
}

// NewInventoryUpdatedEvent creates a new InventoryUpdatedEvent
func NewInventoryUpdatedEvent(record *StockRecord) *InventoryUpdatedEvent {
	return &InventoryUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryUpdated, AggregateTypeStockRecord, record.ID),
		ProductID:       record.ProductID,
		BranchID:        record.BranchID,
		NewQuantity:     record.Quantity,
	}
}

// EventType returns the event type name
func (e *InventoryUpdatedEvent) EventType() string {
	return EventTypeInventoryUpdated
}

// LowStockAlertEvent is raised when a downward mutation leaves quantity
// at or below the effective threshold
type LowStockAlertEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	Quantity  int64     `json:"quantity"`
	Threshold int64     `json:"threshold"`
}

// NewLowStockAlertEvent creates a new LowStockAlertEvent
func NewLowStockAlertEvent(record *StockRecord, threshold int64) *LowStockAlertEvent {
	return &LowStockAlertEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLowStockAlert, AggregateTypeStockRecord, record.ID),
		ProductID:       record.ProductID,
		BranchID:        record.BranchID,
		Quantity:        record.Quantity,
		Threshold:       threshold,
	}
}

// EventType returns the event type name
func (e *LowStockAlertEvent) EventType() string {
	return EventTypeLowStockAlert
}
