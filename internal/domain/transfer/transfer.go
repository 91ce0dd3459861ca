package transfer

import (
	"fmt"
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransferState is the stage of an inter-branch transfer. The machine
// is strictly linear; the only branches are withdrawal before approval
// and the discrepancy terminal on receipt.
type TransferState string

const (
	TransferStateRequested               TransferState = "REQUESTED"
	TransferStateApproved                TransferState = "APPROVED"
	TransferStateDispatched              TransferState = "DISPATCHED"
	TransferStateReceived                TransferState = "RECEIVED"
	TransferStateReceivedWithDiscrepancy TransferState = "RECEIVED_WITH_DISCREPANCY"
	TransferStateWithdrawn               TransferState = "WITHDRAWN"
)

// IsValid checks if the state is a known TransferState
func (s TransferState) IsValid() bool {
	switch s {
	case TransferStateRequested, TransferStateApproved, TransferStateDispatched,
		TransferStateReceived, TransferStateReceivedWithDiscrepancy, TransferStateWithdrawn:
		return true
	}
	return false
}

// String returns the string representation of TransferState
func (s TransferState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s TransferState) IsTerminal() bool {
	switch s {
	case TransferStateReceived, TransferStateReceivedWithDiscrepancy, TransferStateWithdrawn:
		return true
	}
	return false
}

// CanTransitionTo checks if the state can transition to the target state
func (s TransferState) CanTransitionTo(target TransferState) bool {
	switch s {
	case TransferStateRequested:
		return target == TransferStateApproved || target == TransferStateWithdrawn
	case TransferStateApproved:
		return target == TransferStateDispatched
	case TransferStateDispatched:
		return target == TransferStateReceived || target == TransferStateReceivedWithDiscrepancy
	}
	return false
}

// TransferItem is one product line on a transfer. Each quantity column
// is written exactly once, at its stage.
type TransferItem struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransferID         uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID `gorm:"type:uuid;not null"`
	QuantityRequested  int64     `gorm:"not null"`
	QuantityApproved   int64     `gorm:"not null;default:0"`
	QuantityDispatched int64     `gorm:"not null;default:0"`
	QuantityReceived   int64     `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName returns the table name for GORM
func (TransferItem) TableName() string {
	return "transfer_items"
}

// Shortfall returns the units lost in transit
func (i TransferItem) Shortfall() int64 {
	return i.QuantityDispatched - i.QuantityReceived
}

// Transfer is the inter-branch stock movement aggregate root
type Transfer struct {
	shared.BaseAggregateRoot
	TransferNumber string        `gorm:"type:varchar(32);not null;uniqueIndex"`
	FromBranchID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	ToBranchID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	State          TransferState `gorm:"type:varchar(32);not null;index"`

	RequestedBy  uuid.UUID  `gorm:"type:uuid;not null"`
	ApprovedBy   *uuid.UUID `gorm:"type:uuid"`
	DispatchedBy *uuid.UUID `gorm:"type:uuid"`
	ReceivedBy   *uuid.UUID `gorm:"type:uuid"`

	RequestedAt  time.Time `gorm:"not null"`
	ApprovedAt   *time.Time
	DispatchedAt *time.Time
	ReceivedAt   *time.Time
	WithdrawnAt  *time.Time

	TrackingRef      string `gorm:"type:varchar(64)"`
	Notes            string `gorm:"type:text"`
	DiscrepancyNotes string `gorm:"type:text"`

	Items []TransferItem `gorm:"foreignKey:TransferID;references:ID"`
}

// TableName returns the table name for GORM
func (Transfer) TableName() string {
	return "transfers"
}

// TransferPrefix is the document number prefix for transfers
const TransferPrefix = "TRF"

// GenerateTransferNumber produces a candidate transfer number.
// Uniqueness is re-checked against storage by the caller.
func GenerateTransferNumber(t time.Time) string {
	return shared.GenerateReference(TransferPrefix, t)
}

// RequestedItem is a product-quantity pair on a new transfer request
type RequestedItem struct {
	ProductID uuid.UUID
	Quantity  int64
}

// NewTransfer opens a transfer request between two distinct branches
func NewTransfer(transferNumber string, fromBranchID, toBranchID, requestedBy uuid.UUID, items []RequestedItem, notes string) (*Transfer, error) {
	if transferNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transfer number cannot be empty")
	}
	if fromBranchID == uuid.Nil || toBranchID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Source and destination branches are required")
	}
	if fromBranchID == toBranchID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Source and destination branches must differ")
	}
	if requestedBy == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Requesting operator is required")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Transfer must contain at least one item")
	}

	transfer := &Transfer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TransferNumber:    transferNumber,
		FromBranchID:      fromBranchID,
		ToBranchID:        toBranchID,
		State:             TransferStateRequested,
		RequestedBy:       requestedBy,
		RequestedAt:       time.Now(),
		Notes:             notes,
		Items:             make([]TransferItem, 0, len(items)),
	}

	seen := make(map[uuid.UUID]bool, len(items))
	now := time.Now()
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item product ID cannot be empty")
		}
		if item.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item quantity must be positive")
		}
		if seen[item.ProductID] {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Duplicate product in transfer request")
		}
		seen[item.ProductID] = true
		transfer.Items = append(transfer.Items, TransferItem{
			ID:                uuid.New(),
			TransferID:        transfer.ID,
			ProductID:         item.ProductID,
			QuantityRequested: item.Quantity,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	transfer.AddDomainEvent(NewTransferStateChangedEvent(transfer))
	return transfer, nil
}

func (t *Transfer) stateViolation(action string) error {
	return shared.NewDomainError(shared.CodeTransferStateViolation,
		fmt.Sprintf("Cannot %s a transfer in %s state", action, t.State))
}

// Approve moves REQUESTED to APPROVED. The approver must not be the
// requester; per-product approvals may trim quantities (a zero drops
// the line from dispatch), but at least one line must survive.
func (t *Transfer) Approve(approvedBy uuid.UUID, approvals map[uuid.UUID]int64) error {
	if !t.State.CanTransitionTo(TransferStateApproved) {
		return t.stateViolation("approve")
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Approving operator is required")
	}
	if approvedBy == t.RequestedBy {
		return shared.NewDomainError(shared.CodeForbidden, "The requester cannot approve their own transfer")
	}

	anyApproved := false
	for idx := range t.Items {
		item := &t.Items[idx]
		approved, ok := approvals[item.ProductID]
		if !ok {
			// Absent means approved as requested
			approved = item.QuantityRequested
		}
		if approved < 0 || approved > item.QuantityRequested {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Approved quantity for product %s must be between 0 and %d", item.ProductID, item.QuantityRequested))
		}
		item.QuantityApproved = approved
		item.UpdatedAt = time.Now()
		if approved > 0 {
			anyApproved = true
		}
	}
	if !anyApproved {
		return shared.NewDomainError(shared.CodeInvalidInput, "Approval must leave at least one item with a positive quantity")
	}

	now := time.Now()
	t.State = TransferStateApproved
	t.ApprovedBy = &approvedBy
	t.ApprovedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferStateChangedEvent(t))
	return nil
}

// Dispatch moves APPROVED to DISPATCHED, fixing each line's dispatched
// quantity to its approved quantity. The caller deducts source stock in
// the same transaction before the state lands.
func (t *Transfer) Dispatch(dispatchedBy uuid.UUID, trackingRef string) error {
	if !t.State.CanTransitionTo(TransferStateDispatched) {
		return t.stateViolation("dispatch")
	}
	if dispatchedBy == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Dispatching operator is required")
	}

	now := time.Now()
	for idx := range t.Items {
		t.Items[idx].QuantityDispatched = t.Items[idx].QuantityApproved
		t.Items[idx].UpdatedAt = now
	}
	t.State = TransferStateDispatched
	t.DispatchedBy = &dispatchedBy
	t.DispatchedAt = &now
	t.TrackingRef = trackingRef
	t.UpdatedAt = now
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferStateChangedEvent(t))
	return nil
}

// Receive closes the transfer. Receiving everything dispatched lands in
// RECEIVED; any shortfall lands in RECEIVED_WITH_DISCREPANCY and
// demands a non-empty discrepancy note. Lost units are not restored to
// either branch; reconciliation is a manual follow-up.
func (t *Transfer) Receive(receivedBy uuid.UUID, receipts map[uuid.UUID]int64, discrepancyNotes string) error {
	if t.State != TransferStateDispatched {
		return t.stateViolation("receive")
	}
	if receivedBy == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Receiving operator is required")
	}

	shortfall := false
	for idx := range t.Items {
		item := &t.Items[idx]
		received, ok := receipts[item.ProductID]
		if !ok {
			// Absent means received in full
			received = item.QuantityDispatched
		}
		if received < 0 || received > item.QuantityDispatched {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Received quantity for product %s must be between 0 and %d", item.ProductID, item.QuantityDispatched))
		}
		item.QuantityReceived = received
		item.UpdatedAt = time.Now()
		if received < item.QuantityDispatched {
			shortfall = true
		}
	}

	if shortfall && discrepancyNotes == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discrepancy notes are required when units are missing")
	}

	now := time.Now()
	if shortfall {
		t.State = TransferStateReceivedWithDiscrepancy
		t.DiscrepancyNotes = discrepancyNotes
	} else {
		t.State = TransferStateReceived
	}
	t.ReceivedBy = &receivedBy
	t.ReceivedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferStateChangedEvent(t))
	return nil
}

// Withdraw cancels a transfer that has not yet been approved. Only the
// original requester may withdraw.
func (t *Transfer) Withdraw(operatorID uuid.UUID) error {
	if !t.State.CanTransitionTo(TransferStateWithdrawn) {
		return t.stateViolation("withdraw")
	}
	if operatorID != t.RequestedBy {
		return shared.NewDomainError(shared.CodeForbidden, "Only the requester can withdraw the transfer")
	}

	now := time.Now()
	t.State = TransferStateWithdrawn
	t.WithdrawnAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferStateChangedEvent(t))
	return nil
}

// ItemByProduct returns the line for a product, or nil
func (t *Transfer) ItemByProduct(productID uuid.UUID) *TransferItem {
	for idx := range t.Items {
		if t.Items[idx].ProductID == productID {
			return &t.Items[idx]
		}
	}
	return nil
}

// TotalShortfall sums lost units across all lines
func (t *Transfer) TotalShortfall() int64 {
	var total int64
	for _, item := range t.Items {
		total += item.Shortfall()
	}
	return total
}
