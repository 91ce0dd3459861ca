package transfer

import (
	"time"

	"github.com/dukapos/backend/internal/domain/transfer"
	"github.com/google/uuid"
)

// RequestItemRequest is one product line on a new transfer request
type RequestItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,min=1"`
}

// CreateTransferRequest opens a transfer between two branches
type CreateTransferRequest struct {
	FromBranchID uuid.UUID            `json:"from_branch_id" binding:"required"`
	ToBranchID   uuid.UUID            `json:"to_branch_id" binding:"required"`
	Items        []RequestItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes        string               `json:"notes" binding:"max=1000"`
}

// ApprovalItemRequest trims one line's quantity at approval. Zero drops
// the line from dispatch.
type ApprovalItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"min=0"`
}

// ApproveTransferRequest approves a requested transfer. Lines absent
// from Items are approved as requested.
type ApproveTransferRequest struct {
	Items []ApprovalItemRequest `json:"items" binding:"dive"`
}

// DispatchTransferRequest marks an approved transfer as dispatched
type DispatchTransferRequest struct {
	TrackingRef string `json:"tracking_ref" binding:"max=64"`
}

// ReceiptItemRequest records one line's received quantity. Lines absent
// from the receipt are received in full.
type ReceiptItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"min=0"`
}

// ReceiveTransferRequest closes a dispatched transfer
type ReceiveTransferRequest struct {
	Items            []ReceiptItemRequest `json:"items" binding:"dive"`
	DiscrepancyNotes string               `json:"discrepancy_notes" binding:"max=1000"`
}

// TransferItemResponse is one line of a transfer in API responses
type TransferItemResponse struct {
	ProductID          uuid.UUID `json:"product_id"`
	QuantityRequested  int64     `json:"quantity_requested"`
	QuantityApproved   int64     `json:"quantity_approved"`
	QuantityDispatched int64     `json:"quantity_dispatched"`
	QuantityReceived   int64     `json:"quantity_received"`
	Shortfall          int64     `json:"shortfall"`
}

// TransferResponse is the API representation of a transfer
type TransferResponse struct {
	ID               uuid.UUID              `json:"id"`
	TransferNumber   string                 `json:"transfer_number"`
	FromBranchID     uuid.UUID              `json:"from_branch_id"`
	ToBranchID       uuid.UUID              `json:"to_branch_id"`
	State            string                 `json:"state"`
	RequestedBy      uuid.UUID              `json:"requested_by"`
	ApprovedBy       *uuid.UUID             `json:"approved_by,omitempty"`
	DispatchedBy     *uuid.UUID             `json:"dispatched_by,omitempty"`
	ReceivedBy       *uuid.UUID             `json:"received_by,omitempty"`
	RequestedAt      time.Time              `json:"requested_at"`
	ApprovedAt       *time.Time             `json:"approved_at,omitempty"`
	DispatchedAt     *time.Time             `json:"dispatched_at,omitempty"`
	ReceivedAt       *time.Time             `json:"received_at,omitempty"`
	TrackingRef      string                 `json:"tracking_ref,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	DiscrepancyNotes string                 `json:"discrepancy_notes,omitempty"`
	Items            []TransferItemResponse `json:"items"`
	Version          int                    `json:"version"`
}

// ToTransferResponse converts a transfer aggregate to its API shape
func ToTransferResponse(t *transfer.Transfer) TransferResponse {
	items := make([]TransferItemResponse, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, TransferItemResponse{
			ProductID:          item.ProductID,
			QuantityRequested:  item.QuantityRequested,
			QuantityApproved:   item.QuantityApproved,
			QuantityDispatched: item.QuantityDispatched,
			QuantityReceived:   item.QuantityReceived,
			Shortfall:          item.Shortfall(),
		})
	}
	return TransferResponse{
		ID:               t.ID,
		TransferNumber:   t.TransferNumber,
		FromBranchID:     t.FromBranchID,
		ToBranchID:       t.ToBranchID,
		State:            t.State.String(),
		RequestedBy:      t.RequestedBy,
		ApprovedBy:       t.ApprovedBy,
		DispatchedBy:     t.DispatchedBy,
		ReceivedBy:       t.ReceivedBy,
		RequestedAt:      t.RequestedAt,
		ApprovedAt:       t.ApprovedAt,
		DispatchedAt:     t.DispatchedAt,
		ReceivedAt:       t.ReceivedAt,
		TrackingRef:      t.TrackingRef,
		Notes:            t.Notes,
		DiscrepancyNotes: t.DiscrepancyNotes,
		Items:            items,
		Version:          t.Version,
	}
}

// TransferListFilter narrows transfer listings. BranchID is parsed
// from the query string by the handler.
type TransferListFilter struct {
	BranchID uuid.UUID `form:"-"`
	Page     int       `form:"page"`
	PageSize int       `form:"page_size" binding:"omitempty,min=1,max=100"`
}
