package handler

import (
	"github.com/gin-gonic/gin"

	partnerapp "github.com/dukapos/backend/internal/application/partner"
)

// BranchHandler exposes the read-only branch directory
type BranchHandler struct {
	BaseHandler
	directory *partnerapp.DirectoryService
}

// NewBranchHandler creates a new BranchHandler
func NewBranchHandler(directory *partnerapp.DirectoryService) *BranchHandler {
	return &BranchHandler{directory: directory}
}

// RegisterRoutes registers the branch routes
func (h *BranchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	branches := rg.Group("/branches")
	{
		branches.GET("", h.List)
		branches.GET("/:id", h.Get)
	}
}

// List lists branches matching the filter
func (h *BranchHandler) List(c *gin.Context) {
	var filter partnerapp.BranchListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.directory.ListBranches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns a single branch
func (h *BranchHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	branch, err := h.directory.GetBranch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, branch)
}
