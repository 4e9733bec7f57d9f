package attendance

import "time"

type Record struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
	StatusLeave   = "Leave"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPresent, StatusAbsent, StatusLeave:
		return true
	}
	return false
}

// NormalizeDate collapses a timestamp to UTC midnight so one row exists per
// employee per calendar day regardless of the caller's timezone or clock.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
