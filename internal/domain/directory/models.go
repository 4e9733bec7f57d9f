package directory

import "time"

type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AdminID     string    `json:"adminId,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Admin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	DepartmentID string    `json:"departmentId"`
	Department   string    `json:"department,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type SuperAdmin struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Employee struct {
	ID            string     `json:"id"`
	EmployeeNo    string     `json:"employeeId"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Position      string     `json:"position,omitempty"`
	DepartmentID  string     `json:"departmentId"`
	DateOfJoining *time.Time `json:"dateOfJoining,omitempty"`
	Salary        *float64   `json:"salary,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// WithoutSalary returns a copy safe to serialize for principals that lack
// salary visibility.
func (e Employee) WithoutSalary() Employee {
	e.Salary = nil
	return e
}
