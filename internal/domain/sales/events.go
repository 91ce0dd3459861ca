package sales

import (
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSale = "Sale"

// Event type constants. These names are the public contract consumed by
// downstream notifiers.
const (
	EventTypeSaleCreated  = "sale.created"
	EventTypeSaleReversed = "sale.reversed"
)

// SaleCreatedEvent is raised when a checkout commits
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	SaleID        uuid.UUID       `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	BranchID      uuid.UUID       `json:"branch_id"`
	OperatorID    uuid.UUID       `json:"operator_id"`
	Total         decimal.Decimal `json:"total"`
	IsCredit      bool            `json:"is_credit"`
	ItemCount     int             `json:"item_count"`
}

// NewSaleCreatedEvent creates a new SaleCreatedEvent
func NewSaleCreatedEvent(sale *Sale) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, AggregateTypeSale, sale.ID),
		SaleID:          sale.ID,
		ReceiptNumber:   sale.ReceiptNumber,
		BranchID:        sale.BranchID,
		OperatorID:      sale.OperatorID,
		Total:           sale.Total,
		IsCredit:        sale.IsCredit,
		ItemCount:       sale.ItemCount(),
	}
}

// EventType returns the event type name
func (e *SaleCreatedEvent) EventType() string {
	return EventTypeSaleCreated
}

// SaleReversedEvent is raised when a reversal request is approved
type SaleReversedEvent struct {
	shared.BaseDomainEvent
	SaleID        uuid.UUID       `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	BranchID      uuid.UUID       `json:"branch_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
}

// NewSaleReversedEvent creates a new SaleReversedEvent
func NewSaleReversedEvent(sale *Sale) *SaleReversedEvent {
	return &SaleReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleReversed, AggregateTypeSale, sale.ID),
		SaleID:          sale.ID,
		ReceiptNumber:   sale.ReceiptNumber,
		BranchID:        sale.BranchID,
		Amount:          sale.ReversalAmount,
		Reason:          sale.ReversalReason,
	}
}

// EventType returns the event type name
func (e *SaleReversedEvent) EventType() string {
	return EventTypeSaleReversed
}
