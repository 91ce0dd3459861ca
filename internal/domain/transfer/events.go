package transfer

import (
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeTransfer = "Transfer"

// EventTypeTransferStateChanged is the public event raised on every
// transfer stage transition
const EventTypeTransferStateChanged = "transfer.state_changed"

// TransferStateChangedEvent is raised whenever the transfer moves stage
type TransferStateChangedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	FromBranchID   uuid.UUID `json:"from_branch_id"`
	ToBranchID     uuid.UUID `json:"to_branch_id"`
	NewState       string    `json:"new_state"`
}

// NewTransferStateChangedEvent creates a new TransferStateChangedEvent
func NewTransferStateChangedEvent(transfer *Transfer) *TransferStateChangedEvent {
	return &TransferStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferStateChanged, AggregateTypeTransfer, transfer.ID),
		TransferID:      transfer.ID,
		TransferNumber:  transfer.TransferNumber,
		FromBranchID:    transfer.FromBranchID,
		ToBranchID:      transfer.ToBranchID,
		NewState:        transfer.State.String(),
	}
}

// EventType returns the event type name
func (e *TransferStateChangedEvent) EventType() string {
	return EventTypeTransferStateChanged
}
