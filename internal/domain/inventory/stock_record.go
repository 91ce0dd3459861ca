package inventory

import (
	"fmt"
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRecord is the inventory aggregate root: the on-hand quantity of
// one product at one branch. The composite identifier is
// ProductID + BranchID.
//
// Two invariants hold at all times: Quantity never goes below zero, and
// every successful mutation increments Version by exactly one. The
// repository enforces the version chain with a compare-and-swap write.
type StockRecord struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_stock_record_product_branch,priority:1"`
	BranchID          uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_stock_record_product_branch,priority:2"`
	Quantity          int64            `gorm:"not null;default:0"`
	PriceOverride     *decimal.Decimal `gorm:"type:decimal(18,2)"` // Branch-local selling price, nil means product default
	ThresholdOverride *int64           // Branch-local low-stock threshold, nil means product default
	LastRestockAt     *time.Time
	LastSoldAt        *time.Time
	Active            bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StockRecord) TableName() string {
	return "stock_records"
}

// NewStockRecord creates a stock record for a product-branch combination
func NewStockRecord(productID, branchID uuid.UUID) (*StockRecord, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Branch ID cannot be empty")
	}

	return &StockRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		BranchID:          branchID,
		Quantity:          0,
		Active:            true,
	}, nil
}

// ApplyDelta applies a signed quantity adjustment. Positive deltas are
// restocks, negative deltas are sales or dispatches. defaultThreshold is
// the product-level low-stock threshold used when the branch carries no
// override; crossing the effective threshold on the way down raises a
// low-stock alert alongside the update event.
func (r *StockRecord) ApplyDelta(delta int64, defaultThreshold int64) error {
	if delta == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Adjustment delta cannot be zero")
	}

	newQuantity := r.Quantity + delta
	if newQuantity < 0 {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient stock: have %d, need %d", r.Quantity, -delta))
	}

	r.Quantity = newQuantity
	now := time.Now()
	if delta > 0 {
		r.LastRestockAt = &now
	} else {
		r.LastSoldAt = &now
	}
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewInventoryUpdatedEvent(r))
	if delta < 0 && r.IsLowStock(defaultThreshold) {
		r.AddDomainEvent(NewLowStockAlertEvent(r, r.EffectiveThreshold(defaultThreshold)))
	}

	return nil
}

// CanFulfill reports whether the record can cover the requested quantity
func (r *StockRecord) CanFulfill(quantity int64) bool {
	return r.Quantity >= quantity
}

// EffectiveThreshold returns the branch override if set, otherwise the
// product default.
func (r *StockRecord) EffectiveThreshold(defaultThreshold int64) int64 {
	if r.ThresholdOverride != nil {
		return *r.ThresholdOverride
	}
	return defaultThreshold
}

// EffectivePrice returns the branch price override if set, otherwise the
// product's base selling price.
func (r *StockRecord) EffectivePrice(defaultPrice decimal.Decimal) decimal.Decimal {
	if r.PriceOverride != nil {
		return *r.PriceOverride
	}
	return defaultPrice
}

// IsLowStock reports whether quantity has reached the effective threshold
func (r *StockRecord) IsLowStock(defaultThreshold int64) bool {
	threshold := r.EffectiveThreshold(defaultThreshold)
	return threshold > 0 && r.Quantity <= threshold
}

// SetPriceOverride sets or clears the branch-local selling price
func (r *StockRecord) SetPriceOverride(price *decimal.Decimal) error {
	if price != nil && price.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Price override cannot be negative")
	}
	r.PriceOverride = price
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// SetThresholdOverride sets or clears the branch-local low-stock threshold
func (r *StockRecord) SetThresholdOverride(threshold *int64) error {
	if threshold != nil && *threshold < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Threshold override cannot be negative")
	}
	r.ThresholdOverride = threshold
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}
