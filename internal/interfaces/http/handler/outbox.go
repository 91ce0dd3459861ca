package handler

import (
	"github.com/gin-gonic/gin"

	eventapp "github.com/dukapos/backend/internal/application/event"
)

// OutboxHandler exposes operator endpoints for the event outbox
type OutboxHandler struct {
	BaseHandler
	outbox *eventapp.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outbox *eventapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RegisterRoutes registers the outbox routes under /system
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/system/outbox")
	{
		outbox.GET("/stats", h.Stats)
		outbox.GET("/dead", h.ListDeadLetters)
		outbox.GET("/:id", h.GetEntry)
		outbox.POST("/:id/retry", h.RetryEntry)
		outbox.POST("/retry-all", h.RetryAll)
	}
}

// Stats reports entry counts per status
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListDeadLetters pages through the dead letter queue
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var filter eventapp.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.outbox.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// GetEntry retrieves a single outbox entry
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	entry, err := h.outbox.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryEntry resets one dead letter entry for redelivery
func (h *OutboxHandler) RetryEntry(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAll resets every dead letter entry for redelivery
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	count, err := h.outbox.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"retried": count})
}
