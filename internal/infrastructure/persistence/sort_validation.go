package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"sku":           true,
	"name":          true,
	"category":      true,
	"cost_price":    true,
	"selling_price": true,
	"min_price":     true,
	"active":        true,
}

// BranchSortFields contains allowed sort fields for branches
var BranchSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"location":   true,
	"active":     true,
}

// StockRecordSortFields contains allowed sort fields for stock records
var StockRecordSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"product_id":      true,
	"branch_id":       true,
	"quantity":        true,
	"last_restock_at": true,
	"last_sold_at":    true,
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"receipt_number": true,
	"branch_id":      true,
	"total":          true,
	"is_credit":      true,
	"credit_status":  true,
	"sold_at":        true,
}

// TransferSortFields contains allowed sort fields for transfers
var TransferSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"transfer_number": true,
	"from_branch_id":  true,
	"to_branch_id":    true,
	"state":           true,
	"requested_at":    true,
}
