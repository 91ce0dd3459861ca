package catalog

import (
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the catalog aggregate. Checkout validates offered prices
// against MinPrice and low-stock reads fall back to LowStockThreshold
// when a branch carries no override.
type Product struct {
	shared.BaseAggregateRoot
	SKU               string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name              string          `gorm:"type:varchar(255);not null"`
	Category          string          `gorm:"type:varchar(100)"`
	CostPrice         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	SellingPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MinPrice          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"` // Floor price, checkout rejects below this
	LowStockThreshold int64           `gorm:"not null;default:0"`
	Active            bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new catalog product
func NewProduct(sku, name, category string, costPrice, sellingPrice, minPrice decimal.Decimal, lowStockThreshold int64) (*Product, error) {
	if sku == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "SKU cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if minPrice.IsNegative() || sellingPrice.IsNegative() || costPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Prices cannot be negative")
	}
	if minPrice.GreaterThan(sellingPrice) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Floor price cannot exceed selling price")
	}
	if lowStockThreshold < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Low stock threshold cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		Category:          category,
		CostPrice:         costPrice,
		SellingPrice:      sellingPrice,
		MinPrice:          minPrice,
		LowStockThreshold: lowStockThreshold,
		Active:            true,
	}, nil
}

// PriceAllowed reports whether an offered unit price satisfies the floor
func (p *Product) PriceAllowed(offered decimal.Decimal) bool {
	return offered.GreaterThanOrEqual(p.MinPrice)
}

// UpdatePricing updates the product price structure
func (p *Product) UpdatePricing(costPrice, sellingPrice, minPrice decimal.Decimal) error {
	if minPrice.IsNegative() || sellingPrice.IsNegative() || costPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Prices cannot be negative")
	}
	if minPrice.GreaterThan(sellingPrice) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Floor price cannot exceed selling price")
	}
	p.CostPrice = costPrice
	p.SellingPrice = sellingPrice
	p.MinPrice = minPrice
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Deactivate removes the product from sale without deleting history
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
