package leave

import "time"

type Request struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	EmployeeNo string    `json:"employeeNo,omitempty"`
	Employee   string    `json:"employee,omitempty"`
	FromDate   time.Time `json:"fromDate"`
	ToDate     time.Time `json:"toDate"`
	Reason     string    `json:"reason,omitempty"`
	Status     string    `json:"status"`
	DecidedBy  string    `json:"decidedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)
