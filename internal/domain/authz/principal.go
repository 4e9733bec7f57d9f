package authz

import (
	"ems/internal/apperror"
	"ems/internal/domain/auth"
)

type Role string

const (
	RoleSuperAdmin      Role = "SuperAdmin"
	RoleDepartmentAdmin Role = "DepartmentAdmin"
	RoleEmployee        Role = "Employee"
)

// Principal is the authenticated actor for one request. ActorID is the
// actor's own storage id: the admin id for DepartmentAdmin, the employee id
// for Employee. DepartmentID is empty for SuperAdmin.
type Principal struct {
	Role         Role
	ActorID      string
	DepartmentID string
}

// FromClaims builds a Principal from verified token claims. The role set is
// closed; anything else is rejected rather than treated as a lesser role.
func FromClaims(claims *auth.Claims) (Principal, error) {
	switch Role(claims.Role) {
	case RoleSuperAdmin:
		if claims.ActorID == "" {
			return Principal{}, apperror.Unauthenticated("token missing actor id")
		}
		return Principal{Role: RoleSuperAdmin, ActorID: claims.ActorID}, nil
	case RoleDepartmentAdmin, RoleEmployee:
		if claims.ActorID == "" || claims.DepartmentID == "" {
			return Principal{}, apperror.Unauthenticated("token missing actor or department id")
		}
		return Principal{Role: Role(claims.Role), ActorID: claims.ActorID, DepartmentID: claims.DepartmentID}, nil
	default:
		return Principal{}, apperror.Unauthenticated("unknown role")
	}
}

// Scope is the query constraint list operations must apply. Exactly one of
// the three forms is set: everything, one department, or one employee.
type Scope struct {
	All          bool
	DepartmentID string
	EmployeeID   string
}

func (s Scope) IsZero() bool {
	return !s.All && s.DepartmentID == "" && s.EmployeeID == ""
}
