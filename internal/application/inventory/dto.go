package inventory

import (
	"time"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRecordResponse represents a stock record in API responses
type StockRecordResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	ProductName        string          `json:"product_name,omitempty"`
	BranchID           uuid.UUID       `json:"branch_id"`
	Quantity           int64           `json:"quantity"`
	EffectivePrice     decimal.Decimal `json:"effective_price"`
	EffectiveThreshold int64           `json:"effective_threshold"`
	IsLowStock         bool            `json:"is_low_stock"`
	LastRestockAt      *time.Time      `json:"last_restock_at,omitempty"`
	LastSoldAt         *time.Time      `json:"last_sold_at,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Version            int             `json:"version"`
}

// ToStockRecordResponse converts a stock record using the owning
// product for defaults
func ToStockRecordResponse(record *inventory.StockRecord, product *catalog.Product) StockRecordResponse {
	response := StockRecordResponse{
		ID:        record.ID,
		ProductID: record.ProductID,
		BranchID:  record.BranchID,
		Quantity:  record.Quantity,
		UpdatedAt: record.UpdatedAt,
		Version:   record.Version,
	}
	if product != nil {
		response.ProductName = product.Name
		response.EffectivePrice = record.EffectivePrice(product.SellingPrice)
		response.EffectiveThreshold = record.EffectiveThreshold(product.LowStockThreshold)
		response.IsLowStock = record.IsLowStock(product.LowStockThreshold)
	} else {
		response.EffectivePrice = record.EffectivePrice(decimal.Zero)
		response.EffectiveThreshold = record.EffectiveThreshold(0)
		response.IsLowStock = record.IsLowStock(0)
	}
	return response
}

// AdjustStockRequest is a manual stock correction. ExpectedVersion 0
// means the record is expected to be absent and the positive delta
// creates it.
type AdjustStockRequest struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	BranchID        uuid.UUID `json:"branch_id" binding:"required"`
	Delta           int64     `json:"delta" binding:"required"`
	ExpectedVersion *int      `json:"expected_version"` // nil lets the service retry on conflict
	Reason          string    `json:"reason" binding:"required,min=1,max=255"`
}

// StockListFilter represents filter options for per-branch stock
// listing. BranchID is parsed from the query string by the handler.
type StockListFilter struct {
	BranchID uuid.UUID `form:"-"`
	Search   string    `form:"search"`
	Page     int       `form:"page"`
	PageSize int       `form:"page_size" binding:"omitempty,min=1,max=100"`
}
