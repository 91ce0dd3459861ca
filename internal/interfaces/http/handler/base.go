package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/interfaces/http/dto"
	"github.com/dukapos/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common response utilities
type BaseHandler struct{}

// Success sends a 200 response with the standard envelope
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination metadata
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.respondError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindingError sends a 400 response for a failed bind, with per-field
// details when the error came from struct validation
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.RequestIDContextKey)
	c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(err, requestID))
}

// HandleError converts an error into the appropriate HTTP response.
// Domain errors map through their code; anything else is a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.respondError(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	h.respondError(c, http.StatusInternalServerError, dto.ErrCodeInternal,
		"An unexpected error occurred")
}

func (h *BaseHandler) respondError(c *gin.Context, statusCode int, code, message string) {
	requestID := c.GetString(middleware.RequestIDContextKey)
	c.JSON(statusCode, dto.NewErrorResponse(code, message, requestID))
}

// operator returns the authenticated operator, responding 401 when the
// auth middleware did not run.
func (h *BaseHandler) operator(c *gin.Context) (identity.Operator, bool) {
	operator, ok := middleware.GetOperator(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized,
			"Authentication required")
	}
	return operator, ok
}

// parseIDParam binds and parses the :id path parameter
func (h *BaseHandler) parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid ID parameter")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid ID parameter")
		return uuid.Nil, false
	}
	return id, true
}
