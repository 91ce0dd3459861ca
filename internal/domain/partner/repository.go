package partner

import (
	"context"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines persistence operations for branches
type Repository interface {
	Save(ctx context.Context, branch *Branch) error
	FindByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	FindByCode(ctx context.Context, code string) (*Branch, error)
	FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Branch], error)
}
