package payroll

import "time"

type Record struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	EmployeeNo  string    `json:"employeeNo,omitempty"`
	Employee    string    `json:"employee,omitempty"`
	BasicSalary float64   `json:"basicSalary"`
	HRA         float64   `json:"hra"`
	Deductions  float64   `json:"deductions"`
	NetSalary   float64   `json:"netSalary"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	GeneratedOn time.Time `json:"generatedOn"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
