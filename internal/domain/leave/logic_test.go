package leave

import (
	"testing"
	"time"
)

func TestExpandDatesInclusive(t *testing.T) {
	from := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	to := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	days, err := ExpandDates(from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	for i, want := range []int{10, 11, 12} {
		if days[i].Day() != want || days[i].Hour() != 0 {
			t.Fatalf("day %d: expected midnight on the %dth, got %v", i, want, days[i])
		}
	}
}

func TestExpandDatesSingleDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	days, err := ExpandDates(day, day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
}

func TestExpandDatesInvalidRange(t *testing.T) {
	from := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if _, err := ExpandDates(from, to); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
