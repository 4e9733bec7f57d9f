package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
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

// --- departments ---

const departmentColumns = `
  id, name, COALESCE(description, ''), COALESCE(admin_id::text, ''), status, created_at, updated_at`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.AdminID, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) CreateDepartment(ctx context.Context, name, description string) (Department, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, description, status)
    VALUES ($1, NULLIF($2, ''), 'Active')
    RETURNING`+departmentColumns, name, description)
	dept, err := scanDepartment(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return Department{}, apperror.Conflict("department name already exists")
		}
		return Department{}, storeError(err, "department not found")
	}
	return dept, nil
}

func (s *Store) GetDepartment(ctx context.Context, ref string) (Department, error) {
	var row pgx.Row
	if _, err := uuid.Parse(ref); err == nil {
		row = s.DB.QueryRow(ctx, "SELECT"+departmentColumns+" FROM departments WHERE id = $1", ref)
	} else {
		row = s.DB.QueryRow(ctx, "SELECT"+departmentColumns+" FROM departments WHERE name = $1", ref)
	}
	dept, err := scanDepartment(row)
	if err != nil {
		return Department{}, storeError(err, "department not found")
	}
	return dept, nil
}

func (s *Store) ListDepartments(ctx context.Context, scope authz.Scope) ([]Department, error) {
	query := "SELECT" + departmentColumns + " FROM departments"
	var args []any
	if !scope.All {
		// An employee's scope has no department of its own to manage; an
		// admin sees exactly one department.
		if scope.DepartmentID == "" {
			return []Department{}, nil
		}
		query += " WHERE id = $1"
		args = append(args, scope.DepartmentID)
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, dept)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDepartmentStatus(ctx context.Context, id, status string) (Department, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE departments SET status = $2, updated_at = now()
    WHERE id = $1
    RETURNING`+departmentColumns, id, status)
	dept, err := scanDepartment(row)
	if err != nil {
		return Department{}, storeError(err, "department not found")
	}
	return dept, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, id, name, description string) (Department, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE departments
    SET name = COALESCE(NULLIF($2, ''), name),
        description = COALESCE(NULLIF($3, ''), description),
        updated_at = now()
    WHERE id = $1
    RETURNING`+departmentColumns, id, name, description)
	dept, err := scanDepartment(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return Department{}, apperror.Conflict("department name already exists")
		}
		return Department{}, storeError(err, "department not found")
	}
	return dept, nil
}

// DeleteDepartment refuses to remove a department that still owns employees
// or an admin; callers must move or remove dependents first.
func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	var employees, admins int
	err := s.DB.QueryRow(ctx, `
    SELECT
      (SELECT COUNT(1) FROM employees WHERE department_id = $1),
      (SELECT COUNT(1) FROM department_admins WHERE department_id = $1)
  `, id).Scan(&employees, &admins)
	if err != nil {
		return storeError(err, "department not found")
	}
	if employees > 0 {
		return apperror.Conflict(fmt.Sprintf("department still has %d employee(s)", employees))
	}
	if admins > 0 {
		return apperror.Conflict("department still has an admin assigned")
	}

	tag, err := s.DB.Exec(ctx, "DELETE FROM departments WHERE id = $1", id)
	if err != nil {
		return storeError(err, "department not found")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("department not found")
	}
	return nil
}

// --- department admins ---

// CreateAdmin inserts the admin and sets the department back-reference in one
// transaction, department side first. The two links are never written
// independently anywhere else.
func (s *Store) CreateAdmin(ctx context.Context, name, email, passwordHash, departmentID string) (Admin, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Admin{}, storeError(err, "")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deptAdmin string
	err = tx.QueryRow(ctx, "SELECT COALESCE(admin_id::text, '') FROM departments WHERE id = $1 FOR UPDATE", departmentID).Scan(&deptAdmin)
	if err != nil {
		return Admin{}, storeError(err, "department not found")
	}
	if deptAdmin != "" {
		return Admin{}, apperror.Conflict("department already has an admin assigned")
	}

	var admin Admin
	admin.DepartmentID = departmentID
	err = tx.QueryRow(ctx, `
    INSERT INTO department_admins (name, email, password_hash, department_id)
    VALUES ($1, $2, $3, $4)
    RETURNING id, name, email, created_at
  `, name, email, passwordHash, departmentID).Scan(&admin.ID, &admin.Name, &admin.Email, &admin.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return Admin{}, apperror.Conflict("email or department already has an admin")
		}
		return Admin{}, storeError(err, "")
	}

	if _, err := tx.Exec(ctx, "UPDATE departments SET admin_id = $1, updated_at = now() WHERE id = $2", admin.ID, departmentID); err != nil {
		return Admin{}, storeError(err, "")
	}

	if err := tx.Commit(ctx); err != nil {
		return Admin{}, storeError(err, "")
	}
	return admin, nil
}

const adminColumns = `
  a.id, a.name, a.email, a.department_id::text, d.name, a.created_at`

func scanAdmin(row pgx.Row) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.DepartmentID, &a.Department, &a.CreatedAt)
	return a, err
}

func (s *Store) GetAdmin(ctx context.Context, id string) (Admin, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+adminColumns+`
    FROM department_admins a
    JOIN departments d ON a.department_id = d.id
    WHERE a.id = $1
  `, id)
	admin, err := scanAdmin(row)
	if err != nil {
		return Admin{}, storeError(err, "admin not found")
	}
	return admin, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+adminColumns+`
    FROM department_admins a
    JOIN departments d ON a.department_id = d.id
    ORDER BY a.name
  `)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, admin)
	}
	return out, rows.Err()
}

// UpdateAdmin updates profile fields and, when departmentID changes, moves
// the back-reference from the old department to the new one atomically.
func (s *Store) UpdateAdmin(ctx context.Context, id, name, email, passwordHash, departmentID string) (Admin, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Admin{}, storeError(err, "")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentDept string
	if err := tx.QueryRow(ctx, "SELECT department_id::text FROM department_admins WHERE id = $1 FOR UPDATE", id).Scan(&currentDept); err != nil {
		return Admin{}, storeError(err, "admin not found")
	}

	if departmentID != "" && departmentID != currentDept {
		var newDeptAdmin string
		err := tx.QueryRow(ctx, "SELECT COALESCE(admin_id::text, '') FROM departments WHERE id = $1 FOR UPDATE", departmentID).Scan(&newDeptAdmin)
		if err != nil {
			return Admin{}, storeError(err, "department not found")
		}
		if newDeptAdmin != "" && newDeptAdmin != id {
			return Admin{}, apperror.Conflict("new department already has an admin assigned")
		}
		if _, err := tx.Exec(ctx, "UPDATE departments SET admin_id = NULL, updated_at = now() WHERE id = $1", currentDept); err != nil {
			return Admin{}, storeError(err, "")
		}
		if _, err := tx.Exec(ctx, "UPDATE departments SET admin_id = $1, updated_at = now() WHERE id = $2", id, departmentID); err != nil {
			return Admin{}, storeError(err, "")
		}
	} else {
		departmentID = currentDept
	}

	_, err = tx.Exec(ctx, `
    UPDATE department_admins
    SET name = COALESCE(NULLIF($2, ''), name),
        email = COALESCE(NULLIF($3, ''), email),
        password_hash = COALESCE(NULLIF($4, ''), password_hash),
        department_id = $5
    WHERE id = $1
  `, id, name, email, passwordHash, departmentID)
	if err != nil {
		if IsUniqueViolation(err) {
			return Admin{}, apperror.Conflict("email already registered")
		}
		return Admin{}, storeError(err, "")
	}

	if err := tx.Commit(ctx); err != nil {
		return Admin{}, storeError(err, "")
	}
	return s.GetAdmin(ctx, id)
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeError(err, "")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "UPDATE departments SET admin_id = NULL, updated_at = now() WHERE admin_id = $1", id); err != nil {
		return storeError(err, "")
	}
	tag, err := tx.Exec(ctx, "DELETE FROM department_admins WHERE id = $1", id)
	if err != nil {
		return storeError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("admin not found")
	}
	return tx.Commit(ctx)
}

// --- employees ---

const employeeColumns = `
  id, employee_no, name, email, COALESCE(phone, ''), COALESCE(position, ''),
  department_id::text, date_of_joining, salary, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.EmployeeNo, &e.Name, &e.Email, &e.Phone, &e.Position,
		&e.DepartmentID, &e.DateOfJoining, &e.Salary, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee, passwordHash string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO employees (employee_no, name, email, password_hash, phone, position, department_id, date_of_joining, salary, status)
    VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, 'Active')
    RETURNING`+employeeColumns,
		e.EmployeeNo, e.Name, e.Email, passwordHash, e.Phone, e.Position, e.DepartmentID, e.DateOfJoining, e.Salary)
	created, err := scanEmployee(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return Employee{}, apperror.Conflict("employee email or id already exists")
		}
		return Employee{}, storeError(err, "")
	}
	return created, nil
}

// GetEmployee accepts either the storage UUID or the EMS number.
func (s *Store) GetEmployee(ctx context.Context, ref string) (Employee, error) {
	var row pgx.Row
	if _, err := uuid.Parse(ref); err == nil {
		row = s.DB.QueryRow(ctx, "SELECT"+employeeColumns+" FROM employees WHERE id = $1", ref)
	} else {
		row = s.DB.QueryRow(ctx, "SELECT"+employeeColumns+" FROM employees WHERE employee_no = $1", ref)
	}
	emp, err := scanEmployee(row)
	if err != nil {
		return Employee{}, storeError(err, "employee not found")
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, scope authz.Scope) ([]Employee, error) {
	query := "SELECT" + employeeColumns + " FROM employees"
	var args []any
	switch {
	case scope.All:
	case scope.DepartmentID != "":
		query += " WHERE department_id = $1"
		args = append(args, scope.DepartmentID)
	default:
		query += " WHERE id = $1"
		args = append(args, scope.EmployeeID)
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, storeError(err, "")
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

type EmployeeUpdate struct {
	Name          string
	Email         string
	Phone         string
	Position      string
	Status        string
	DateOfJoining *string
	Salary        *float64
	PasswordHash  string
}

func (s *Store) UpdateEmployee(ctx context.Context, id string, upd EmployeeUpdate) (Employee, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(expr string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if upd.Name != "" {
		add("name = $%d", upd.Name)
	}
	if upd.Email != "" {
		add("email = $%d", upd.Email)
	}
	if upd.Phone != "" {
		add("phone = $%d", upd.Phone)
	}
	if upd.Position != "" {
		add("position = $%d", upd.Position)
	}
	if upd.Status != "" {
		add("status = $%d", upd.Status)
	}
	if upd.DateOfJoining != nil {
		add("date_of_joining = $%d", *upd.DateOfJoining)
	}
	if upd.Salary != nil {
		add("salary = $%d", *upd.Salary)
	}
	if upd.PasswordHash != "" {
		add("password_hash = $%d", upd.PasswordHash)
	}

	query := "UPDATE employees SET " + strings.Join(sets, ", ") + " WHERE id = $1 RETURNING" + employeeColumns
	emp, err := scanEmployee(s.DB.QueryRow(ctx, query, args...))
	if err != nil {
		if IsUniqueViolation(err) {
			return Employee{}, apperror.Conflict("employee email already exists")
		}
		return Employee{}, storeError(err, "employee not found")
	}
	return emp, nil
}

// DeleteEmployee refuses while dependent records remain; the caller decides
// whether to clean those up first.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	var dependents int
	err := s.DB.QueryRow(ctx, `
    SELECT
      (SELECT COUNT(1) FROM leave_requests WHERE employee_id = $1) +
      (SELECT COUNT(1) FROM tasks WHERE assigned_to = $1) +
      (SELECT COUNT(1) FROM payroll WHERE employee_id = $1) +
      (SELECT COUNT(1) FROM attendance WHERE employee_id = $1)
  `, id).Scan(&dependents)
	if err != nil {
		return storeError(err, "employee not found")
	}
	if dependents > 0 {
		return apperror.Conflict(fmt.Sprintf("employee still has %d dependent record(s)", dependents))
	}

	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return storeError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("employee not found")
	}
	return nil
}

func (s *Store) EmployeeNoExists(ctx context.Context, no string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE employee_no = $1", no).Scan(&count); err != nil {
		return false, storeError(err, "")
	}
	return count > 0, nil
}

// --- credential lookups for login ---

type Credentials struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	DepartmentID string
	Status       string
}

func (s *Store) SuperAdminByEmail(ctx context.Context, email string) (Credentials, error) {
	var c Credentials
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, email, password_hash FROM super_admins WHERE email = $1
  `, email).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash)
	if err != nil {
		return Credentials{}, storeError(err, "account not found")
	}
	return c, nil
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (Credentials, error) {
	var c Credentials
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, email, password_hash, department_id::text
    FROM department_admins WHERE email = $1
  `, email).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.DepartmentID)
	if err != nil {
		return Credentials{}, storeError(err, "account not found")
	}
	return c, nil
}

func (s *Store) EmployeeByEmail(ctx context.Context, email string) (Credentials, error) {
	var c Credentials
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, email, password_hash, department_id::text, status
    FROM employees WHERE email = $1
  `, email).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.DepartmentID, &c.Status)
	if err != nil {
		return Credentials{}, storeError(err, "account not found")
	}
	return c, nil
}
