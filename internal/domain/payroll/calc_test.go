package payroll

import (
	"testing"

	"ems/internal/apperror"
)

func TestNetSalary(t *testing.T) {
	net, err := NetSalary(50000, 10000, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if net != 55000 {
		t.Fatalf("expected 55000, got %v", net)
	}
}

func TestNetSalaryRejectsNegativeComponents(t *testing.T) {
	if _, err := NetSalary(-1, 0, 0); !apperror.Is(err, apperror.CodeInvalidInput) {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestNetSalaryRejectsNegativeNet(t *testing.T) {
	if _, err := NetSalary(1000, 0, 2000); !apperror.Is(err, apperror.CodeInvalidInput) {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestValidPeriod(t *testing.T) {
	if !ValidPeriod(1, 2025) || !ValidPeriod(12, 2025) {
		t.Fatal("expected valid periods to pass")
	}
	if ValidPeriod(0, 2025) || ValidPeriod(13, 2025) || ValidPeriod(6, 0) {
		t.Fatal("expected invalid periods to fail")
	}
}
