package partner

import (
	"time"

	"github.com/dukapos/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// BranchResponse represents a branch in API responses
type BranchResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToBranchResponse converts a branch aggregate to its response form
func ToBranchResponse(branch *partner.Branch) BranchResponse {
	response := BranchResponse{
		ID:        branch.ID,
		Code:      branch.Code,
		Name:      branch.Name,
		Location:  branch.Location,
		Active:    branch.Active,
		CreatedAt: branch.CreatedAt,
		UpdatedAt: branch.UpdatedAt,
	}
	if !branch.Phone.IsZero() {
		response.Phone = branch.Phone.String()
	}
	return response
}

// BranchListFilter represents filter options for the branch directory
type BranchListFilter struct {
	Search   string `form:"search"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
