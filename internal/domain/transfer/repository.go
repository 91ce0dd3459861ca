package transfer

import (
	"context"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransferRepository defines the interface for transfer persistence.
// Save and SaveWithLock persist the aggregate with its items.
type TransferRepository interface {
	// FindByID finds a transfer with its items loaded
	FindByID(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// FindByNumber finds a transfer by its document number
	FindByNumber(ctx context.Context, transferNumber string) (*Transfer, error)

	// FindByBranch lists transfers where the branch is source or destination
	FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Transfer], error)

	// Save creates a transfer with its items
	Save(ctx context.Context, transfer *Transfer) error

	// SaveWithLock updates a transfer with optimistic locking on its version
	SaveWithLock(ctx context.Context, transfer *Transfer) error

	// ExistsByNumber checks transfer number uniqueness
	ExistsByNumber(ctx context.Context, transferNumber string) (bool, error)
}
