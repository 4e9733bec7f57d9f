package directory

import (
	"context"
	"regexp"
	"testing"

	"ems/internal/apperror"
)

type fakeNoChecker struct {
	taken  map[string]bool
	always bool
	calls  int
}

func (f *fakeNoChecker) EmployeeNoExists(ctx context.Context, no string) (bool, error) {
	f.calls++
	if f.always {
		return true, nil
	}
	return f.taken[no], nil
}

func TestGenerateEmployeeNoFormat(t *testing.T) {
	no, err := GenerateEmployeeNo(context.Background(), &fakeNoChecker{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^EMS[1-9]\d{2}$`).MatchString(no) {
		t.Fatalf("unexpected employee number format: %q", no)
	}
}

func TestGenerateEmployeeNoRetriesOnCollision(t *testing.T) {
	checker := &fakeNoChecker{taken: map[string]bool{}}
	first, err := GenerateEmployeeNo(context.Background(), checker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checker.taken[first] = true
	second, err := GenerateEmployeeNo(context.Background(), checker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == first {
		t.Fatalf("generator returned a taken number: %q", second)
	}
}

func TestGenerateEmployeeNoExhaustion(t *testing.T) {
	_, err := GenerateEmployeeNo(context.Background(), &fakeNoChecker{always: true})
	if !apperror.Is(err, apperror.CodeConflict) {
		t.Fatalf("expected conflict when namespace exhausted, got %v", err)
	}
}
