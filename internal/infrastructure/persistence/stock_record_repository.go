package persistence

import (
	"context"
	"errors"

	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRecordRepository implements StockRecordRepository using GORM
type GormStockRecordRepository struct {
	db *gorm.DB
}

// NewGormStockRecordRepository creates a new GormStockRecordRepository
func NewGormStockRecordRepository(db *gorm.DB) *GormStockRecordRepository {
	return &GormStockRecordRepository{db: db}
}

// FindByID finds a stock record by its ID
func (r *GormStockRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	var record inventory.StockRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByProductAndBranch finds the record for a product-branch combination
func (r *GormStockRecordRepository) FindByProductAndBranch(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	var record inventory.StockRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByBranch finds all stock records at a branch
func (r *GormStockRecordRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]inventory.StockRecord, error) {
	var records []inventory.StockRecord
	query := r.db.WithContext(ctx).Model(&inventory.StockRecord{}).
		Where("branch_id = ?", branchID)

	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "low_stock":
			if value == true {
				query = query.
					Joins("JOIN products ON products.id = stock_records.product_id").
					Where("COALESCE(stock_records.threshold_override, products.low_stock_threshold) > 0").
					Where("stock_records.quantity <= COALESCE(stock_records.threshold_override, products.low_stock_threshold)")
			}
		case "active":
			query = query.Where("active = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, StockRecordSortFields, "created_at")
	query = query.Order("stock_records." + orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByProduct finds all stock records for a product across branches
func (r *GormStockRecordRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	var records []inventory.StockRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("branch_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save creates or updates a stock record
func (r *GormStockRecordRepository) Save(ctx context.Context, record *inventory.StockRecord) error {
	err := r.db.WithContext(ctx).Save(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another writer created the product-branch row first; the
		// caller's expected-absent assumption no longer holds.
		return shared.ErrVersionConflict
	}
	return err
}

// SaveWithLock saves with optimistic locking. The update only lands when
// the stored row still carries the previous version.
func (r *GormStockRecordRepository) SaveWithLock(ctx context.Context, record *inventory.StockRecord) error {
	result := r.db.WithContext(ctx).
		Model(record).
		Where("id = ? AND version = ?", record.ID, record.Version-1).
		Updates(map[string]interface{}{
			"quantity":           record.Quantity,
			"price_override":     record.PriceOverride,
			"threshold_override": record.ThresholdOverride,
			"last_restock_at":    record.LastRestockAt,
			"last_sold_at":       record.LastSoldAt,
			"active":             record.Active,
			"version":            record.Version,
			"updated_at":         record.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrVersionConflict
	}
	return nil
}

// GetOrCreate gets the existing record or creates an empty one
func (r *GormStockRecordRepository) GetOrCreate(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	record, err := r.FindByProductAndBranch(ctx, productID, branchID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	record, err = inventory.NewStockRecord(productID, branchID)
	if err != nil {
		return nil, err
	}
	record.ClearDomainEvents()

	// ON CONFLICT covers the race where two writers create the same
	// product-branch row at once
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return r.FindByProductAndBranch(ctx, productID, branchID)
	}
	return record, nil
}

// CountByBranch counts stock records at a branch
func (r *GormStockRecordRepository) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockRecord{}).
		Where("branch_id = ?", branchID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormStockRecordRepository implements StockRecordRepository
var _ inventory.StockRecordRepository = (*GormStockRecordRepository)(nil)
