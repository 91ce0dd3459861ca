package inventory

import (
	"context"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StockRecordRepository defines the interface for stock record persistence
type StockRecordRepository interface {
	// FindByID finds a stock record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockRecord, error)

	// FindByProductAndBranch finds the record for a product-branch combination
	FindByProductAndBranch(ctx context.Context, productID, branchID uuid.UUID) (*StockRecord, error)

	// FindByBranch finds all stock records at a branch
	FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]StockRecord, error)

	// FindByProduct finds all stock records for a product (across branches)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]StockRecord, error)

	// Save creates or updates a stock record
	Save(ctx context.Context, record *StockRecord) error

	// SaveWithLock saves with optimistic locking: the update only lands if
	// the stored version is exactly one behind the record's. Returns
	// shared.ErrVersionConflict when another writer got there first.
	SaveWithLock(ctx context.Context, record *StockRecord) error

	// GetOrCreate gets the existing record or creates an empty one
	GetOrCreate(ctx context.Context, productID, branchID uuid.UUID) (*StockRecord, error)

	// CountByBranch counts stock records at a branch
	CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error)
}
