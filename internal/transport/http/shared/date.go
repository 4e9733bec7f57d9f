package shared

import "time"

// ParseDate accepts RFC3339 or a bare calendar date. Calendar dates are the
// common case: attendance days, leave ranges and joining dates all carry no
// time component.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.DateOnly, value)
}

// FormatDate renders the calendar-date form used across the API.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
