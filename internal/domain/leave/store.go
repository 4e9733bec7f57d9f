package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/apperror"
	"ems/internal/domain/attendance"
	"ems/internal/domain/authz"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func storeError(err error, notFoundMsg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(notFoundMsg)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.CodeUnavailable, "store timed out", err)
	}
	return apperror.Wrap(apperror.CodeUnavailable, "store operation failed", err)
}

const requestColumns = `
  r.id, r.employee_id::text, e.employee_no, e.name,
  r.from_date, r.to_date, COALESCE(r.reason, ''), r.status,
  COALESCE(r.decided_by::text, ''), r.created_at, r.updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.EmployeeID, &req.EmployeeNo, &req.Employee,
		&req.FromDate, &req.ToDate, &req.Reason, &req.Status, &req.DecidedBy,
		&req.CreatedAt, &req.UpdatedAt)
	return req, err
}

func (s *Store) Create(ctx context.Context, employeeID string, from, to time.Time, reason string) (Request, error) {
	row := s.DB.QueryRow(ctx, `
    WITH inserted AS (
      INSERT INTO leave_requests (employee_id, from_date, to_date, reason, status)
      VALUES ($1, $2, $3, NULLIF($4, ''), 'Pending')
      RETURNING *
    )
    SELECT`+requestColumns+`
    FROM inserted r
    JOIN employees e ON r.employee_id = e.id
  `, employeeID, midnight(from), midnight(to), reason)
	req, err := scanRequest(row)
	if err != nil {
		return Request{}, storeError(err, "employee not found")
	}
	return req, nil
}

func (s *Store) Get(ctx context.Context, id string) (Request, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
    WHERE r.id = $1
  `, id)
	req, err := scanRequest(row)
	if err != nil {
		return Request{}, storeError(err, "leave request not found")
	}
	return req, nil
}

func (s *Store) List(ctx context.Context, scope authz.Scope, status string) ([]Request, error) {
	query := `
    SELECT` + requestColumns + `
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id`
	var args []any
	where := func(cond string, value any) {
		args = append(args, value)
		if len(args) == 1 {
			query += " WHERE "
		} else {
			query += " AND "
		}
		query += fmt.Sprintf(cond, len(args))
	}
	switch {
	case scope.All:
	case scope.DepartmentID != "":
		where("e.department_id = $%d", scope.DepartmentID)
	default:
		where("r.employee_id = $%d", scope.EmployeeID)
	}
	if status != "" {
		where("r.status = $%d", status)
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Decide moves a Pending request to Approved or Rejected. Approval writes one
// Leave attendance row per day in the range inside the same transaction,
// upserting so a racing duplicate decision cannot create duplicate rows.
func (s *Store) Decide(ctx context.Context, id, status, decidedBy string) (Request, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, storeError(err, "")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	var employeeID string
	var from, to time.Time
	err = tx.QueryRow(ctx, `
    SELECT status, employee_id::text, from_date, to_date
    FROM leave_requests WHERE id = $1 FOR UPDATE
  `, id).Scan(&current, &employeeID, &from, &to)
	if err != nil {
		return Request{}, storeError(err, "leave request not found")
	}
	if current != StatusPending {
		return Request{}, apperror.InvalidState("leave request already " + current)
	}

	if _, err := tx.Exec(ctx, `
    UPDATE leave_requests SET status = $2, decided_by = $3, updated_at = now() WHERE id = $1
  `, id, status, decidedBy); err != nil {
		return Request{}, storeError(err, "")
	}

	if status == StatusApproved {
		days, err := ExpandDates(from, to)
		if err != nil {
			return Request{}, apperror.InvalidInput(err.Error())
		}
		for _, day := range days {
			if _, err := tx.Exec(ctx, `
        INSERT INTO attendance (employee_id, date, status)
        VALUES ($1, $2, $3)
        ON CONFLICT (employee_id, date) DO UPDATE SET status = EXCLUDED.status
      `, employeeID, day, attendance.StatusLeave); err != nil {
				return Request{}, storeError(err, "")
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, storeError(err, "")
	}
	return s.Get(ctx, id)
}
