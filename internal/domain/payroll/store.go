package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/apperror"
	"ems/internal/domain/authz"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func storeError(err error, notFoundMsg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperror.Conflict("payroll already generated for this employee and period")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(notFoundMsg)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.CodeUnavailable, "store timed out", err)
	}
	return apperror.Wrap(apperror.CodeUnavailable, "store operation failed", err)
}

const recordColumns = `
  p.id, p.employee_id::text, e.employee_no, e.name,
  p.basic_salary, p.hra, p.deductions, p.net_salary,
  p.month, p.year, p.generated_on, p.updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeNo, &rec.Employee,
		&rec.BasicSalary, &rec.HRA, &rec.Deductions, &rec.NetSalary,
		&rec.Month, &rec.Year, &rec.GeneratedOn, &rec.UpdatedAt)
	return rec, err
}

func (s *Store) Create(ctx context.Context, rec Record) (Record, error) {
	row := s.DB.QueryRow(ctx, `
    WITH inserted AS (
      INSERT INTO payroll (employee_id, basic_salary, hra, deductions, net_salary, month, year)
      VALUES ($1, $2, $3, $4, $5, $6, $7)
      RETURNING *
    )
    SELECT`+recordColumns+`
    FROM inserted p
    JOIN employees e ON p.employee_id = e.id
  `, rec.EmployeeID, rec.BasicSalary, rec.HRA, rec.Deductions, rec.NetSalary, rec.Month, rec.Year)
	created, err := scanRecord(row)
	if err != nil {
		return Record{}, storeError(err, "employee not found")
	}
	return created, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+recordColumns+`
    FROM payroll p
    JOIN employees e ON p.employee_id = e.id
    WHERE p.id = $1
  `, id)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, storeError(err, "payroll record not found")
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, scope authz.Scope, month, year int) ([]Record, error) {
	query := `
    SELECT` + recordColumns + `
    FROM payroll p
    JOIN employees e ON p.employee_id = e.id`
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
		where("p.employee_id = $%d", scope.EmployeeID)
	}
	if month > 0 {
		where("p.month = $%d", month)
	}
	if year > 0 {
		where("p.year = $%d", year)
	}
	query += " ORDER BY p.year DESC, p.month DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type Update struct {
	BasicSalary *float64
	HRA         *float64
	Deductions  *float64
	Month       *int
	Year        *int
}

// ApplyUpdate mutates the record and recomputes the net whenever any salary
// component changed, under a row lock so concurrent updates cannot interleave
// a stale net.
func (s *Store) ApplyUpdate(ctx context.Context, id string, upd Update) (Record, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Record{}, storeError(err, "")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var basic, hra, deductions float64
	var month, year int
	err = tx.QueryRow(ctx, `
    SELECT basic_salary, hra, deductions, month, year
    FROM payroll WHERE id = $1 FOR UPDATE
  `, id).Scan(&basic, &hra, &deductions, &month, &year)
	if err != nil {
		return Record{}, storeError(err, "payroll record not found")
	}

	if upd.BasicSalary != nil {
		basic = *upd.BasicSalary
	}
	if upd.HRA != nil {
		hra = *upd.HRA
	}
	if upd.Deductions != nil {
		deductions = *upd.Deductions
	}
	if upd.Month != nil {
		month = *upd.Month
	}
	if upd.Year != nil {
		year = *upd.Year
	}
	if !ValidPeriod(month, year) {
		return Record{}, apperror.InvalidInput("month must be 1-12 and year plausible")
	}
	net, err := NetSalary(basic, hra, deductions)
	if err != nil {
		return Record{}, err
	}

	if _, err := tx.Exec(ctx, `
    UPDATE payroll
    SET basic_salary = $2, hra = $3, deductions = $4, net_salary = $5, month = $6, year = $7, updated_at = now()
    WHERE id = $1
  `, id, basic, hra, deductions, net, month, year); err != nil {
		return Record{}, storeError(err, "")
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, storeError(err, "")
	}
	return s.Get(ctx, id)
}
