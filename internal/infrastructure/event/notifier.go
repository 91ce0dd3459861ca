package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
)

// LogNotifier is the delivery adapter for the public events. It writes
// each event as a structured notification record; an SMS or webhook
// notifier would replace it without touching the pipeline.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

// EventTypes lists the public events the notifier consumes
func (n *LogNotifier) EventTypes() []string {
	return []string{
		inventory.EventTypeInventoryUpdated,
		inventory.EventTypeLowStockAlert,
		sales.EventTypeSaleCreated,
		sales.EventTypeSaleReversed,
		transfer.EventTypeTransferStateChanged,
	}
}

// Handle emits one notification per event
func (n *LogNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
	}

	switch e := event.(type) {
	case *inventory.LowStockAlertEvent:
		n.logger.Warn("low stock alert", append(fields,
			zap.String("product_id", e.ProductID.String()),
			zap.String("branch_id", e.BranchID.String()),
			zap.Int64("quantity", e.Quantity),
			zap.Int64("threshold", e.Threshold))...)
	case *inventory.InventoryUpdatedEvent:
		n.logger.Info("stock level changed", append(fields,
			zap.String("product_id", e.ProductID.String()),
			zap.String("branch_id", e.BranchID.String()),
			zap.Int64("new_quantity", e.NewQuantity))...)
	case *sales.SaleCreatedEvent:
		n.logger.Info("sale recorded", append(fields,
			zap.String("receipt_number", e.ReceiptNumber),
			zap.String("branch_id", e.BranchID.String()),
			zap.String("total", e.Total.StringFixed(2)),
			zap.Bool("is_credit", e.IsCredit))...)
	case *sales.SaleReversedEvent:
		n.logger.Info("sale reversed", append(fields,
			zap.String("receipt_number", e.ReceiptNumber),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("reason", e.Reason))...)
	case *transfer.TransferStateChangedEvent:
		n.logger.Info("transfer state changed", append(fields,
			zap.String("transfer_number", e.TransferNumber),
			zap.String("new_state", e.NewState))...)
	default:
		n.logger.Info("event delivered", fields...)
	}
	return nil
}

var _ shared.EventHandler = (*LogNotifier)(nil)
