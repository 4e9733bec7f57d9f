package leave

import (
	"errors"
	"time"
)

// ExpandDates returns every calendar day in [from, to] inclusive, normalized
// to UTC midnight. Approving leave for [D1, D3] yields exactly three days.
func ExpandDates(from, to time.Time) ([]time.Time, error) {
	from = midnight(from)
	to = midnight(to)
	if to.Before(from) {
		return nil, errors.New("toDate before fromDate")
	}

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
