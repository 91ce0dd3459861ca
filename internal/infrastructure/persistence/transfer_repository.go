package persistence

import (
	"context"
	"errors"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransferRepository implements TransferRepository using GORM
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// FindByID finds a transfer with its items loaded
func (r *GormTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	var t transfer.Transfer
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByNumber finds a transfer by its document number
func (r *GormTransferRepository) FindByNumber(ctx context.Context, transferNumber string) (*transfer.Transfer, error) {
	var t transfer.Transfer
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&t, "transfer_number = ?", transferNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByBranch lists transfers where the branch is source or destination
func (r *GormTransferRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (*shared.Paginated[*transfer.Transfer], error) {
	query := r.db.WithContext(ctx).Model(&transfer.Transfer{}).
		Where("(from_branch_id = ? OR to_branch_id = ?)", branchID, branchID)

	for key, value := range filter.Filters {
		switch key {
		case "state":
			query = query.Where("state = ?", value)
		case "requested_by":
			query = query.Where("requested_by = ?", value)
		case "direction":
			switch value {
			case "outbound":
				query = query.Where("from_branch_id = ?", branchID)
			case "inbound":
				query = query.Where("to_branch_id = ?", branchID)
			}
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, TransferSortFields, "requested_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var results []*transfer.Transfer
	if err := query.Preload("Items").Find(&results).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(results, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Save creates a transfer with its items
func (r *GormTransferRepository) Save(ctx context.Context, t *transfer.Transfer) error {
	err := r.db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveWithLock updates a transfer with optimistic locking on its version.
// Items carry the per-stage quantities, so they are rewritten alongside
// the state row.
func (r *GormTransferRepository) SaveWithLock(ctx context.Context, t *transfer.Transfer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&transfer.Transfer{}).
			Where("id = ? AND version = ?", t.ID, t.Version-1).
			Updates(map[string]interface{}{
				"state":             t.State,
				"approved_by":       t.ApprovedBy,
				"dispatched_by":     t.DispatchedBy,
				"received_by":       t.ReceivedBy,
				"approved_at":       t.ApprovedAt,
				"dispatched_at":     t.DispatchedAt,
				"received_at":       t.ReceivedAt,
				"withdrawn_at":      t.WithdrawnAt,
				"tracking_ref":      t.TrackingRef,
				"notes":             t.Notes,
				"discrepancy_notes": t.DiscrepancyNotes,
				"version":           t.Version,
				"updated_at":        t.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrVersionConflict
		}

		for i := range t.Items {
			t.Items[i].TransferID = t.ID
			if err := tx.Save(&t.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ExistsByNumber checks transfer number uniqueness
func (r *GormTransferRepository) ExistsByNumber(ctx context.Context, transferNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&transfer.Transfer{}).
		Where("transfer_number = ?", transferNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormTransferRepository implements TransferRepository
var _ transfer.TransferRepository = (*GormTransferRepository)(nil)
