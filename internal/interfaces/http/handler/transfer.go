package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	transferapp "github.com/dukapos/backend/internal/application/transfer"
)

// TransferHandler exposes the inter-branch transfer endpoints
type TransferHandler struct {
	BaseHandler
	transfers *transferapp.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transfers *transferapp.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

// RegisterRoutes registers the transfer routes
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	transfers := rg.Group("/transfers")
	{
		transfers.POST("", h.Request)
		transfers.GET("", h.List)
		transfers.GET("/:id", h.Get)
		transfers.POST("/:id/approve", h.Approve)
		transfers.POST("/:id/dispatch", h.Dispatch)
		transfers.POST("/:id/receive", h.Receive)
		transfers.POST("/:id/withdraw", h.Withdraw)
	}
}

// Request opens a transfer between two branches
func (h *TransferHandler) Request(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}

	var req transferapp.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	transfer, err := h.transfers.Request(c.Request.Context(), operator, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, transfer)
}

// Get retrieves one transfer with its lines
func (h *TransferHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	transfer, err := h.transfers.GetTransfer(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// List pages through the transfers touching a branch
func (h *TransferHandler) List(c *gin.Context) {
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "branch_id query parameter is required")
		return
	}

	var filter transferapp.TransferListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	filter.BranchID = branchID

	result, err := h.transfers.ListTransfers(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Approve approves a requested transfer, optionally trimming lines
func (h *TransferHandler) Approve(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req transferapp.ApproveTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	transfer, err := h.transfers.Approve(c.Request.Context(), operator, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// Dispatch marks an approved transfer as on the way
func (h *TransferHandler) Dispatch(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req transferapp.DispatchTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	transfer, err := h.transfers.Dispatch(c.Request.Context(), operator, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// Receive closes a dispatched transfer at the destination
func (h *TransferHandler) Receive(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req transferapp.ReceiveTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	transfer, err := h.transfers.Receive(c.Request.Context(), operator, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// Withdraw cancels a transfer that has not yet been dispatched
func (h *TransferHandler) Withdraw(c *gin.Context) {
	operator, ok := h.operator(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	transfer, err := h.transfers.Withdraw(c.Request.Context(), operator, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}
