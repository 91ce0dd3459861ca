package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	salesapp "github.com/dukapos/backend/internal/application/sales"
)

// SalesHandler exposes checkout, reversal, and credit endpoints
type SalesHandler struct {
	BaseHandler
	checkout *salesapp.CheckoutService
	credit   *salesapp.CreditService
}

// NewSalesHandler creates a new SalesHandler
func NewSalesHandler(checkout *salesapp.CheckoutService, credit *salesapp.CreditService) *SalesHandler {
	return &SalesHandler{
		checkout: checkout,
		credit:   credit,
	}
}

// RegisterRoutes registers the sales routes
func (h *SalesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := rg.Group("/sales")
	{
		sales.POST("", h.Checkout)
		sales.GET("", h.List)
		sales.GET("/:id", h.Get)
		sales.POST("/:id/reversal-requests", h.RequestReversal)
		sales.POST("/:id/reversal-decision", h.DecideReversal)
		sales.POST("/:id/credit-payments", h.RecordCreditPayment)
	}
	rg.GET("/credit/balance", h.OutstandingBalance)
}

// Checkout finalizes a point-of-sale purchase
func (h *SalesHandler) Checkout(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}

	var req salesapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	sale, err := h.checkout.Checkout(c.Request.Context(), operator, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, sale)
}

// Get retrieves one sale with its receipt lines and payments
func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	sale, err := h.checkout.GetSale(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// List pages through the sales at a branch
func (h *SalesHandler) List(c *gin.Context) {
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "branch_id query parameter is required")
		return
	}

	var filter salesapp.SaleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	filter.BranchID = branchID

	result, err := h.checkout.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// RequestReversal opens a reversal request against a sale
func (h *SalesHandler) RequestReversal(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req salesapp.ReversalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	sale, err := h.checkout.RequestReversal(c.Request.Context(), operator, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// DecideReversal approves or rejects a pending reversal request
func (h *SalesHandler) DecideReversal(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req salesapp.ReversalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	sale, err := h.checkout.DecideReversal(c.Request.Context(), operator, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// RecordCreditPayment records an installment against a credit sale
func (h *SalesHandler) RecordCreditPayment(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req salesapp.CreditPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	sale, err := h.credit.RecordPayment(c.Request.Context(), operator, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

// OutstandingBalance reports a customer's open credit position
func (h *SalesHandler) OutstandingBalance(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		h.BadRequest(c, "phone query parameter is required")
		return
	}

	balance, err := h.credit.OutstandingBalance(c.Request.Context(), phone)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}
