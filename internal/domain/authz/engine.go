package authz

import (
	"context"

	"ems/internal/apperror"
)

type ResourceKind string

const (
	KindEmployee     ResourceKind = "employee"
	KindLeaveRequest ResourceKind = "leave_request"
	KindTask         ResourceKind = "task"
	KindPayroll      ResourceKind = "payroll"
	KindAttendance   ResourceKind = "attendance"
)

// Ownership is the resolved ownership chain for one resource: the owning
// employee and, transitively, that employee's department. AssignedBy is set
// for tasks only and names the admin who created the task.
type Ownership struct {
	ID           string
	EmployeeID   string
	DepartmentID string
	AssignedBy   string
}

// Locator resolves the ownership chain for a resource reference. All methods
// are read-only. A missing resource, or a resource whose employee reference
// dangles, yields apperror.CodeNotFound.
type Locator interface {
	Employee(ctx context.Context, ref string) (Ownership, error)
	Resource(ctx context.Context, kind ResourceKind, id string) (Ownership, error)
	Department(ctx context.Context, ref string) (Department, error)
	DepartmentNamed(ctx context.Context, name string) (string, error)
}

type Department struct {
	ID     string
	Name   string
	Status string
}

// HRDepartmentName is the department whose admin holds payroll privileges.
const HRDepartmentName = "HR"

// Engine makes every allow/deny decision in the system. Denials distinguish
// a resource that does not exist (not_found) from one that exists outside
// the principal's scope (forbidden); the choice is applied uniformly for
// every resource kind.
type Engine struct {
	loc Locator
}

func NewEngine(loc Locator) *Engine {
	return &Engine{loc: loc}
}

// ScopeFor returns the list/create filter for a principal. There is no deny
// outcome here: every principal may list, but only within its scope.
func (e *Engine) ScopeFor(p Principal) Scope {
	switch p.Role {
	case RoleSuperAdmin:
		return Scope{All: true}
	case RoleDepartmentAdmin:
		return Scope{DepartmentID: p.DepartmentID}
	default:
		return Scope{EmployeeID: p.ActorID}
	}
}

// Authorize decides access to one identified resource. The decision strictly
// follows the ownership lookup; a SuperAdmin short-circuits before any I/O.
func (e *Engine) Authorize(ctx context.Context, p Principal, kind ResourceKind, id string) (Ownership, error) {
	if p.Role == RoleSuperAdmin {
		if kind == KindEmployee {
			return e.loc.Employee(ctx, id)
		}
		return e.loc.Resource(ctx, kind, id)
	}

	var own Ownership
	var err error
	if kind == KindEmployee {
		own, err = e.loc.Employee(ctx, id)
	} else {
		own, err = e.loc.Resource(ctx, kind, id)
	}
	if err != nil {
		return Ownership{}, err
	}

	switch p.Role {
	case RoleDepartmentAdmin:
		if own.DepartmentID == p.DepartmentID {
			return own, nil
		}
		if kind == KindTask && own.AssignedBy == p.ActorID {
			return own, nil
		}
	case RoleEmployee:
		if own.EmployeeID == p.ActorID {
			return own, nil
		}
	}
	return Ownership{}, apperror.Forbidden("resource is outside your scope")
}

// AuthorizeEmployee checks that an employee reference supplied as a foreign
// key (task assignee, payroll target, attendance subject) resolves inside
// the principal's scope, and returns the resolved employee.
func (e *Engine) AuthorizeEmployee(ctx context.Context, p Principal, ref string) (Ownership, error) {
	return e.Authorize(ctx, p, KindEmployee, ref)
}

// AuthorizeDepartment allows SuperAdmin everywhere and a DepartmentAdmin
// only on its own department.
func (e *Engine) AuthorizeDepartment(ctx context.Context, p Principal, ref string) (Department, error) {
	dept, err := e.loc.Department(ctx, ref)
	if err != nil {
		return Department{}, err
	}
	switch p.Role {
	case RoleSuperAdmin:
		return dept, nil
	case RoleDepartmentAdmin:
		if dept.ID == p.DepartmentID {
			return dept, nil
		}
	}
	return Department{}, apperror.Forbidden("department is outside your scope")
}

// AuthorizeHRPrivileged gates salary and payroll mutation. It is evaluated
// live on every call: an admin whose department is renamed to HR gains the
// privilege on the next request, and loses it the same way.
func (e *Engine) AuthorizeHRPrivileged(ctx context.Context, p Principal) error {
	if p.Role == RoleSuperAdmin {
		return nil
	}
	if p.Role != RoleDepartmentAdmin {
		return apperror.Forbidden("hr privilege required")
	}
	hrID, err := e.loc.DepartmentNamed(ctx, HRDepartmentName)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return apperror.Forbidden("hr privilege required")
		}
		return err
	}
	if hrID != p.DepartmentID {
		return apperror.Forbidden("hr privilege required")
	}
	return nil
}

// CanViewSalary reports whether the principal may see employee salary
// fields. Employees never see the raw salary through the directory surface;
// payroll exposes their own figures instead.
func (e *Engine) CanViewSalary(ctx context.Context, p Principal) bool {
	return e.AuthorizeHRPrivileged(ctx, p) == nil
}
