package persistence

import (
	"context"
	"errors"

	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM. The aggregate
// is persisted across four tables: the sale row plus its items, payment
// legs and credit installments.
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale with all associations loaded
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("CreditPayments").
		First(&sale, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindByReceiptNumber finds a sale by its receipt number
func (r *GormSaleRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("CreditPayments").
		First(&sale, "receipt_number = ?", receiptNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindByBranch lists sales at a branch, newest first
func (r *GormSaleRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (*shared.Paginated[*sales.Sale], error) {
	query := r.db.WithContext(ctx).Model(&sales.Sale{}).
		Where("branch_id = ?", branchID)

	for key, value := range filter.Filters {
		switch key {
		case "is_credit":
			query = query.Where("is_credit = ?", value)
		case "credit_status":
			query = query.Where("credit_status = ?", value)
		case "is_reversed":
			query = query.Where("is_reversed = ?", value)
		case "operator_id":
			query = query.Where("operator_id = ?", value)
		case "sold_after":
			query = query.Where("sold_at >= ?", value)
		case "sold_before":
			query = query.Where("sold_at < ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, SaleSortFields, "sold_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var results []*sales.Sale
	if err := query.Preload("Items").Preload("Payments").Preload("CreditPayments").
		Find(&results).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(results, total, filter.Page, filter.PageSize)
	return &page, nil
}

// FindCreditByCustomerPhone lists non-reversed credit sales for a customer
func (r *GormSaleRepository) FindCreditByCustomerPhone(ctx context.Context, phone valueobject.PhoneNumber) ([]*sales.Sale, error) {
	var results []*sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("CreditPayments").
		Where("customer_phone = ? AND is_credit = ? AND is_reversed = ?", phone.String(), true, false).
		Order("sold_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Save creates a sale with its associations
func (r *GormSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	err := r.db.WithContext(ctx).Create(sale).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveWithLock updates a sale with optimistic locking. The domain layer
// has already incremented the version, so the row must still hold the
// previous one for the write to land.
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, sale *sales.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&sales.Sale{}).
			Where("id = ? AND version = ?", sale.ID, sale.Version-1).
			Updates(map[string]interface{}{
				"customer_name":         sale.CustomerName,
				"customer_phone":        sale.CustomerPhone,
				"subtotal":              sale.Subtotal,
				"discount":              sale.Discount,
				"total":                 sale.Total,
				"is_credit":             sale.IsCredit,
				"credit_status":         sale.CreditStatus,
				"is_reversed":           sale.IsReversed,
				"reversal_status":       sale.ReversalStatus,
				"reversal_reason":       sale.ReversalReason,
				"reversal_amount":       sale.ReversalAmount,
				"reversal_requested_by": sale.ReversalRequestedBy,
				"reversal_decided_by":   sale.ReversalDecidedBy,
				"reversal_requested_at": sale.ReversalRequestedAt,
				"reversal_decided_at":   sale.ReversalDecidedAt,
				"version":               sale.Version,
				"updated_at":            sale.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrVersionConflict
		}

		// Receipt lines are immutable after checkout; only installments grow
		for i := range sale.CreditPayments {
			sale.CreditPayments[i].SaleID = sale.ID
			if err := tx.Save(&sale.CreditPayments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ExistsByReceiptNumber checks receipt number uniqueness
func (r *GormSaleRepository) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sales.Sale{}).
		Where("receipt_number = ?", receiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormSaleRepository implements SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)
