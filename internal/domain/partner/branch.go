package partner

import (
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
)

// Branch is a physical shop location. Stock records, sales and transfers
// are all scoped to a branch.
type Branch struct {
	shared.BaseAggregateRoot
	Code     string                  `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name     string                  `gorm:"type:varchar(255);not null"`
	Location string                  `gorm:"type:varchar(255)"`
	Phone    valueobject.PhoneNumber `gorm:"type:varchar(16)"`
	Active   bool                    `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Branch) TableName() string {
	return "branches"
}

// NewBranch creates a new branch
func NewBranch(code, name, location string, phone valueobject.PhoneNumber) (*Branch, error) {
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Branch code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Branch name cannot be empty")
	}

	return &Branch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Location:          location,
		Phone:             phone,
		Active:            true,
	}, nil
}

// Deactivate closes the branch for new activity
func (b *Branch) Deactivate() {
	b.Active = false
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
}
