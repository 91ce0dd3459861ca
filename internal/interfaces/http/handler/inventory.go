package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/dukapos/backend/internal/application/inventory"
)

// InventoryHandler exposes the stock ledger endpoints
type InventoryHandler struct {
	BaseHandler
	ledger *inventoryapp.LedgerService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger *inventoryapp.LedgerService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// RegisterRoutes registers the inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inventory := rg.Group("/inventory")
	{
		inventory.POST("/adjustments", h.Adjust)
		inventory.GET("/stock", h.ListStock)
		inventory.GET("/low-stock", h.ListLowStock)
	}
}

// Adjust applies a manual stock correction
func (h *InventoryHandler) Adjust(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}

	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	record, err := h.ledger.AdjustWithRetry(c.Request.Context(), operator, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// ListStock lists the stock records at a branch
func (h *InventoryHandler) ListStock(c *gin.Context) {
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "branch_id query parameter is required")
		return
	}

	var filter inventoryapp.StockListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	filter.BranchID = branchID

	records, err := h.ledger.GetStock(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}

// ListLowStock lists records at or below their effective threshold
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "branch_id query parameter is required")
		return
	}

	records, err := h.ledger.GetLowStock(c.Request.Context(), branchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}
