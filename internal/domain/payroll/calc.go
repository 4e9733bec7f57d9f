package payroll

import "ems/internal/apperror"

// NetSalary computes basic + hra − deductions. Components must be
// non-negative; a negative net is rejected rather than stored.
func NetSalary(basic, hra, deductions float64) (float64, error) {
	if basic < 0 || hra < 0 || deductions < 0 {
		return 0, apperror.InvalidInput("salary components must be non-negative")
	}
	net := basic + hra - deductions
	if net < 0 {
		return 0, apperror.InvalidInput("deductions exceed gross salary")
	}
	return net, nil
}

func ValidPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 1970 && year <= 9999
}
