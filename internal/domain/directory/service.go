package directory

import (
	"context"
	"time"

	"ems/internal/apperror"
	"ems/internal/domain/auth"
)

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

type NewEmployee struct {
	Name          string
	Email         string
	Password      string
	Phone         string
	Position      string
	DepartmentID  string
	DateOfJoining *string
	Salary        *float64
}

// CreateEmployee assigns a fresh EMS number, hashes the password, and stores
// the record. The caller has already verified the department is within the
// acting principal's scope.
func (s *Service) CreateEmployee(ctx context.Context, input NewEmployee) (Employee, error) {
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return Employee{}, apperror.Wrap(apperror.CodeUnavailable, "password hashing failed", err)
	}
	no, err := GenerateEmployeeNo(ctx, s.Store)
	if err != nil {
		return Employee{}, err
	}

	emp := Employee{
		EmployeeNo:   no,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Position:     input.Position,
		DepartmentID: input.DepartmentID,
		Salary:       input.Salary,
	}
	if input.DateOfJoining != nil {
		parsed, err := parseDate(*input.DateOfJoining)
		if err != nil {
			return Employee{}, apperror.InvalidInput("dateOfJoining must be YYYY-MM-DD")
		}
		emp.DateOfJoining = &parsed
	}
	return s.Store.CreateEmployee(ctx, emp, hash)
}

// CreateAdmin hashes the credential and delegates to the transactional
// store insert that maintains the department back-reference.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password, departmentID string) (Admin, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Admin{}, apperror.Wrap(apperror.CodeUnavailable, "password hashing failed", err)
	}
	return s.Store.CreateAdmin(ctx, name, email, hash, departmentID)
}

func (s *Service) UpdateAdmin(ctx context.Context, id, name, email, password, departmentID string) (Admin, error) {
	hash := ""
	if password != "" {
		var err error
		hash, err = auth.HashPassword(password)
		if err != nil {
			return Admin{}, apperror.Wrap(apperror.CodeUnavailable, "password hashing failed", err)
		}
	}
	return s.Store.UpdateAdmin(ctx, id, name, email, hash, departmentID)
}
