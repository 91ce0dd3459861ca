package persistence

import (
	"context"
	"errors"

	"github.com/dukapos/backend/internal/domain/partner"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBranchRepository implements partner.Repository using GORM
type GormBranchRepository struct {
	db *gorm.DB
}

// NewGormBranchRepository creates a new GormBranchRepository
func NewGormBranchRepository(db *gorm.DB) *GormBranchRepository {
	return &GormBranchRepository{db: db}
}

// Save creates or updates a branch
func (r *GormBranchRepository) Save(ctx context.Context, branch *partner.Branch) error {
	return r.db.WithContext(ctx).Save(branch).Error
}

// FindByID finds a branch by its ID
func (r *GormBranchRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Branch, error) {
	var branch partner.Branch
	if err := r.db.WithContext(ctx).First(&branch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &branch, nil
}

// FindByCode finds a branch by its code
func (r *GormBranchRepository) FindByCode(ctx context.Context, code string) (*partner.Branch, error) {
	var branch partner.Branch
	if err := r.db.WithContext(ctx).First(&branch, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &branch, nil
}

// FindAll lists branches with pagination
func (r *GormBranchRepository) FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*partner.Branch], error) {
	query := r.db.WithContext(ctx).Model(&partner.Branch{})

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ?", pattern, pattern)
	}
	if active, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, BranchSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var branches []*partner.Branch
	if err := query.Find(&branches).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(branches, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Ensure GormBranchRepository implements partner.Repository
var _ partner.Repository = (*GormBranchRepository)(nil)
