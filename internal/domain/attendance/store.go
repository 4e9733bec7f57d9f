package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/apperror"
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

// Mark upserts by (employee, normalized date): re-marking the same day
// replaces the status rather than adding a second row.
func (s *Store) Mark(ctx context.Context, employeeID string, date time.Time, status string) (Record, error) {
	var rec Record
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance (employee_id, date, status)
    VALUES ($1, $2, $3)
    ON CONFLICT (employee_id, date) DO UPDATE SET status = EXCLUDED.status
    RETURNING id, employee_id::text, date, status, created_at
  `, employeeID, NormalizeDate(date), status).Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.Status, &rec.CreatedAt)
	if err != nil {
		return Record{}, storeError(err, "")
	}
	return rec, nil
}

func (s *Store) Unmark(ctx context.Context, employeeID string, date time.Time) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM attendance WHERE employee_id = $1 AND date = $2", employeeID, NormalizeDate(date))
	if err != nil {
		return storeError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("no attendance recorded for this date")
	}
	return nil
}

func (s *Store) ListForEmployee(ctx context.Context, employeeID string) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id::text, date, status, created_at
    FROM attendance
    WHERE employee_id = $1
    ORDER BY date DESC
  `, employeeID)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) CountForEmployee(ctx context.Context, employeeID string, status string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM attendance WHERE employee_id = $1 AND status = $2
  `, employeeID, status).Scan(&count)
	if err != nil {
		return 0, storeError(err, "")
	}
	return count, nil
}
