package authz

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/apperror"
)

// Store is the pgx-backed Locator. Every lookup runs under a bounded
// timeout; expiry surfaces as unavailable, a missing row as not_found.
type Store struct {
	DB      *pgxpool.Pool
	Timeout time.Duration
}

func NewStore(db *pgxpool.Pool, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{DB: db, Timeout: timeout}
}

func (s *Store) Employee(ctx context.Context, ref string) (Ownership, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// The surface API is inconsistent about which identifier form it passes,
	// so both are accepted: a storage UUID first, then the EMS number.
	var row pgx.Row
	if _, err := uuid.Parse(ref); err == nil {
		row = s.DB.QueryRow(ctx, `
      SELECT id, department_id FROM employees WHERE id = $1
    `, ref)
	} else {
		row = s.DB.QueryRow(ctx, `
      SELECT id, department_id FROM employees WHERE employee_no = $1
    `, ref)
	}

	var own Ownership
	if err := row.Scan(&own.EmployeeID, &own.DepartmentID); err != nil {
		return Ownership{}, lookupError(err, "employee not found")
	}
	own.ID = own.EmployeeID
	return own, nil
}

func (s *Store) Resource(ctx context.Context, kind ResourceKind, id string) (Ownership, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return Ownership{}, apperror.NotFound(string(kind) + " not found")
	}

	var query string
	assignedBy := false
	switch kind {
	case KindLeaveRequest:
		query = `
      SELECT r.id, e.id, e.department_id
      FROM leave_requests r
      JOIN employees e ON r.employee_id = e.id
      WHERE r.id = $1`
	case KindTask:
		query = `
      SELECT t.id, e.id, e.department_id, t.assigned_by
      FROM tasks t
      JOIN employees e ON t.assigned_to = e.id
      WHERE t.id = $1`
		assignedBy = true
	case KindPayroll:
		query = `
      SELECT p.id, e.id, e.department_id
      FROM payroll p
      JOIN employees e ON p.employee_id = e.id
      WHERE p.id = $1`
	case KindAttendance:
		query = `
      SELECT a.id, e.id, e.department_id
      FROM attendance a
      JOIN employees e ON a.employee_id = e.id
      WHERE a.id = $1`
	default:
		return Ownership{}, apperror.NotFound("unknown resource kind")
	}

	var own Ownership
	var err error
	if assignedBy {
		err = s.DB.QueryRow(ctx, query, id).Scan(&own.ID, &own.EmployeeID, &own.DepartmentID, &own.AssignedBy)
	} else {
		err = s.DB.QueryRow(ctx, query, id).Scan(&own.ID, &own.EmployeeID, &own.DepartmentID)
	}
	if err != nil {
		return Ownership{}, lookupError(err, string(kind)+" not found")
	}
	return own, nil
}

func (s *Store) Department(ctx context.Context, ref string) (Department, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var row pgx.Row
	if _, err := uuid.Parse(ref); err == nil {
		row = s.DB.QueryRow(ctx, "SELECT id, name, status FROM departments WHERE id = $1", ref)
	} else {
		row = s.DB.QueryRow(ctx, "SELECT id, name, status FROM departments WHERE name = $1", ref)
	}

	var dept Department
	if err := row.Scan(&dept.ID, &dept.Name, &dept.Status); err != nil {
		return Department{}, lookupError(err, "department not found")
	}
	return dept, nil
}

func (s *Store) DepartmentNamed(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM departments WHERE name = $1", name).Scan(&id)
	if err != nil {
		return "", lookupError(err, "department not found")
	}
	return id, nil
}

func lookupError(err error, notFoundMsg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(notFoundMsg)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.CodeUnavailable, "store lookup timed out", err)
	}
	return apperror.Wrap(apperror.CodeUnavailable, "store lookup failed", err)
}
