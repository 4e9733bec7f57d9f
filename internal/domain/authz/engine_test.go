package authz

import (
	"context"
	"testing"

	"ems/internal/apperror"
	"ems/internal/domain/auth"
)

func claimsFor(role, actorID, departmentID string) *auth.Claims {
	return &auth.Claims{Role: role, ActorID: actorID, DepartmentID: departmentID}
}

type fakeLocator struct {
	employees map[string]Ownership
	resources map[string]Ownership
	depts     map[string]Department
	calls     int
}

func (f *fakeLocator) Employee(ctx context.Context, ref string) (Ownership, error) {
	f.calls++
	if own, ok := f.employees[ref]; ok {
		return own, nil
	}
	return Ownership{}, apperror.NotFound("employee not found")
}

func (f *fakeLocator) Resource(ctx context.Context, kind ResourceKind, id string) (Ownership, error) {
	f.calls++
	if own, ok := f.resources[string(kind)+":"+id]; ok {
		return own, nil
	}
	return Ownership{}, apperror.NotFound("resource not found")
}

func (f *fakeLocator) Department(ctx context.Context, ref string) (Department, error) {
	f.calls++
	if dept, ok := f.depts[ref]; ok {
		return dept, nil
	}
	return Department{}, apperror.NotFound("department not found")
}

func (f *fakeLocator) DepartmentNamed(ctx context.Context, name string) (string, error) {
	f.calls++
	for _, dept := range f.depts {
		if dept.Name == name {
			return dept.ID, nil
		}
	}
	return "", apperror.NotFound("department not found")
}

func newFixture() *fakeLocator {
	return &fakeLocator{
		employees: map[string]Ownership{
			"emp-1":  {ID: "emp-1", EmployeeID: "emp-1", DepartmentID: "dept-eng"},
			"EMS482": {ID: "emp-1", EmployeeID: "emp-1", DepartmentID: "dept-eng"},
			"emp-2":  {ID: "emp-2", EmployeeID: "emp-2", DepartmentID: "dept-sales"},
		},
		resources: map[string]Ownership{
			"leave_request:lr-1": {ID: "lr-1", EmployeeID: "emp-1", DepartmentID: "dept-eng"},
			"task:task-1":        {ID: "task-1", EmployeeID: "emp-2", DepartmentID: "dept-sales", AssignedBy: "admin-sales"},
			"task:task-2":        {ID: "task-2", EmployeeID: "emp-2", DepartmentID: "dept-sales", AssignedBy: "admin-eng"},
			"payroll:pay-1":      {ID: "pay-1", EmployeeID: "emp-1", DepartmentID: "dept-eng"},
		},
		depts: map[string]Department{
			"dept-eng":   {ID: "dept-eng", Name: "Engineering", Status: "Active"},
			"dept-sales": {ID: "dept-sales", Name: "Sales", Status: "Active"},
			"dept-hr":    {ID: "dept-hr", Name: "HR", Status: "Active"},
		},
	}
}

func TestScopeFor(t *testing.T) {
	engine := NewEngine(newFixture())

	if scope := engine.ScopeFor(Principal{Role: RoleSuperAdmin, ActorID: "sa"}); !scope.All {
		t.Fatalf("expected all scope, got %+v", scope)
	}
	scope := engine.ScopeFor(Principal{Role: RoleDepartmentAdmin, ActorID: "admin-eng", DepartmentID: "dept-eng"})
	if scope.All || scope.DepartmentID != "dept-eng" {
		t.Fatalf("expected department scope, got %+v", scope)
	}
	scope = engine.ScopeFor(Principal{Role: RoleEmployee, ActorID: "emp-1", DepartmentID: "dept-eng"})
	if scope.All || scope.EmployeeID != "emp-1" {
		t.Fatalf("expected self scope, got %+v", scope)
	}
}

func TestSuperAdminAlwaysAllowed(t *testing.T) {
	engine := NewEngine(newFixture())
	superAdmin := Principal{Role: RoleSuperAdmin, ActorID: "sa"}

	for _, id := range []string{"lr-1"} {
		if _, err := engine.Authorize(context.Background(), superAdmin, KindLeaveRequest, id); err != nil {
			t.Fatalf("super admin denied on %s: %v", id, err)
		}
	}
	if _, err := engine.Authorize(context.Background(), superAdmin, KindTask, "task-1"); err != nil {
		t.Fatalf("super admin denied on task: %v", err)
	}
	if _, err := engine.Authorize(context.Background(), superAdmin, KindEmployee, "EMS482"); err != nil {
		t.Fatalf("super admin denied on employee: %v", err)
	}
}

func TestDepartmentAdminScoping(t *testing.T) {
	engine := NewEngine(newFixture())
	engAdmin := Principal{Role: RoleDepartmentAdmin, ActorID: "admin-eng", DepartmentID: "dept-eng"}

	if _, err := engine.Authorize(context.Background(), engAdmin, KindLeaveRequest, "lr-1"); err != nil {
		t.Fatalf("admin denied own-department leave request: %v", err)
	}

	// Task assigned to a Sales employee, created by a different admin.
	_, err := engine.Authorize(context.Background(), engAdmin, KindTask, "task-1")
	if !apperror.Is(err, apperror.CodeForbidden) {
		t.Fatalf("expected forbidden for cross-department task, got %v", err)
	}

	// Same cross-department assignee, but the Engineering admin created it.
	if _, err := engine.Authorize(context.Background(), engAdmin, KindTask, "task-2"); err != nil {
		t.Fatalf("admin denied own-created task: %v", err)
	}
}

func TestEmployeeSelfOnly(t *testing.T) {
	engine := NewEngine(newFixture())
	employee := Principal{Role: RoleEmployee, ActorID: "emp-1", DepartmentID: "dept-eng"}

	if _, err := engine.Authorize(context.Background(), employee, KindLeaveRequest, "lr-1"); err != nil {
		t.Fatalf("employee denied own leave request: %v", err)
	}
	_, err := engine.Authorize(context.Background(), employee, KindTask, "task-1")
	if !apperror.Is(err, apperror.CodeForbidden) {
		t.Fatalf("expected forbidden for another employee's task, got %v", err)
	}
	if _, err := engine.Authorize(context.Background(), employee, KindEmployee, "EMS482"); err != nil {
		t.Fatalf("employee denied own record via EMS number: %v", err)
	}
}

func TestMissingResourceIsNotFound(t *testing.T) {
	engine := NewEngine(newFixture())
	admin := Principal{Role: RoleDepartmentAdmin, ActorID: "admin-eng", DepartmentID: "dept-eng"}

	_, err := engine.Authorize(context.Background(), admin, KindLeaveRequest, "lr-missing")
	if !apperror.Is(err, apperror.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestAuthorizeEmployeeForeignKey(t *testing.T) {
	engine := NewEngine(newFixture())
	engAdmin := Principal{Role: RoleDepartmentAdmin, ActorID: "admin-eng", DepartmentID: "dept-eng"}

	own, err := engine.AuthorizeEmployee(context.Background(), engAdmin, "EMS482")
	if err != nil {
		t.Fatalf("admin denied assigning within department: %v", err)
	}
	if own.EmployeeID != "emp-1" {
		t.Fatalf("unexpected resolved employee: %+v", own)
	}

	_, err = engine.AuthorizeEmployee(context.Background(), engAdmin, "emp-2")
	if !apperror.Is(err, apperror.CodeForbidden) {
		t.Fatalf("expected forbidden assigning outside department, got %v", err)
	}
}

func TestHRPrivilege(t *testing.T) {
	engine := NewEngine(newFixture())

	if err := engine.AuthorizeHRPrivileged(context.Background(), Principal{Role: RoleSuperAdmin, ActorID: "sa"}); err != nil {
		t.Fatalf("super admin should hold hr privilege: %v", err)
	}

	engAdmin := Principal{Role: RoleDepartmentAdmin, ActorID: "admin-eng", DepartmentID: "dept-eng"}
	if err := engine.AuthorizeHRPrivileged(context.Background(), engAdmin); !apperror.Is(err, apperror.CodeForbidden) {
		t.Fatalf("expected forbidden for non-HR admin, got %v", err)
	}

	hrAdmin := Principal{Role: RoleDepartmentAdmin, ActorID: "admin-hr", DepartmentID: "dept-hr"}
	if err := engine.AuthorizeHRPrivileged(context.Background(), hrAdmin); err != nil {
		t.Fatalf("hr admin denied: %v", err)
	}

	employee := Principal{Role: RoleEmployee, ActorID: "emp-1", DepartmentID: "dept-hr"}
	if err := engine.AuthorizeHRPrivileged(context.Background(), employee); !apperror.Is(err, apperror.CodeForbidden) {
		t.Fatalf("expected forbidden for employee, got %v", err)
	}
}

func TestHRPrivilegeEvaluatedLive(t *testing.T) {
	loc := newFixture()
	engine := NewEngine(loc)
	admin := Principal{Role: RoleDepartmentAdmin, ActorID: "admin-eng", DepartmentID: "dept-eng"}

	if err := engine.AuthorizeHRPrivileged(context.Background(), admin); !apperror.Is(err, apperror.CodeForbidden) {
		t.Fatalf("expected forbidden before rename, got %v", err)
	}

	// Rename the admin's department to HR: the next check must allow.
	loc.depts["dept-hr"] = Department{ID: "dept-hr", Name: "People"}
	loc.depts["dept-eng"] = Department{ID: "dept-eng", Name: "HR"}
	if err := engine.AuthorizeHRPrivileged(context.Background(), admin); err != nil {
		t.Fatalf("expected allow after rename, got %v", err)
	}
}

func TestCachedLocatorHitsStoreOnce(t *testing.T) {
	loc := newFixture()
	cached := NewCachedLocator(loc)
	engine := NewEngine(cached)
	admin := Principal{Role: RoleDepartmentAdmin, ActorID: "admin-eng", DepartmentID: "dept-eng"}

	if _, err := engine.Authorize(context.Background(), admin, KindLeaveRequest, "lr-1"); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	calls := loc.calls
	if _, err := engine.Authorize(context.Background(), admin, KindLeaveRequest, "lr-1"); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if loc.calls != calls {
		t.Fatalf("expected cached lookup, store calls went %d -> %d", calls, loc.calls)
	}
}

func TestFromClaimsRejectsUnknownRole(t *testing.T) {
	_, err := FromClaims(claimsFor("Owner", "x", ""))
	if !apperror.Is(err, apperror.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated for unknown role, got %v", err)
	}

	_, err = FromClaims(claimsFor(string(RoleDepartmentAdmin), "admin-1", ""))
	if !apperror.Is(err, apperror.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated for missing department, got %v", err)
	}

	principal, err := FromClaims(claimsFor(string(RoleEmployee), "emp-1", "dept-eng"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal.Role != RoleEmployee || principal.ActorID != "emp-1" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}
