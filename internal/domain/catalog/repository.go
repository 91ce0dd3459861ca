package catalog

import (
	"context"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines persistence operations for products
type Repository interface {
	Save(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Product], error)
}
