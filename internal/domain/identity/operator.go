package identity

import (
	"github.com/google/uuid"
)

// Role is the operator's authorization level, established by the
// upstream authentication gate and carried in the verified token.
type Role string

const (
	RoleCashier Role = "CASHIER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether the role is one of the known levels
func (r Role) Valid() bool {
	switch r {
	case RoleCashier, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsPrivileged reports whether the role may approve reversals and
// transfers, override floor prices, and make manual stock corrections.
func (r Role) IsPrivileged() bool {
	return r == RoleManager || r == RoleAdmin
}

// Operator is the trusted identity triple for the acting user. It is
// never resolved ambiently; every application operation takes it as an
// explicit argument.
type Operator struct {
	ID           uuid.UUID
	Role         Role
	HomeBranchID uuid.UUID
}

// CanOperateAt reports whether the operator may act at the given branch.
// Cashiers are confined to their home branch; managers and admins may
// act across branches.
func (o Operator) CanOperateAt(branchID uuid.UUID) bool {
	if o.Role.IsPrivileged() {
		return true
	}
	return o.HomeBranchID == branchID
}
