package sales

import (
	"context"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SaleRepository defines the interface for sale persistence. Save and
// SaveWithLock persist the aggregate with its items, payment legs and
// installments in one transaction.
type SaleRepository interface {
	// FindByID finds a sale with all associations loaded
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindByReceiptNumber finds a sale by its receipt number
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*Sale, error)

	// FindByBranch lists sales at a branch, newest first
	FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Sale], error)

	// FindCreditByCustomerPhone lists non-reversed credit sales for a customer
	FindCreditByCustomerPhone(ctx context.Context, phone valueobject.PhoneNumber) ([]*Sale, error)

	// Save creates a sale with its associations
	Save(ctx context.Context, sale *Sale) error

	// SaveWithLock updates a sale with optimistic locking on its version
	SaveWithLock(ctx context.Context, sale *Sale) error

	// ExistsByReceiptNumber checks receipt number uniqueness
	ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error)
}
