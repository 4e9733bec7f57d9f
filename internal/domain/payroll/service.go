package payroll

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"ems/internal/apperror"
	"ems/internal/domain/authz"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

// Generate creates the payslip record for one employee and period. The
// caller has already passed the HR-privilege gate and resolved the employee
// within its scope.
func (s *Service) Generate(ctx context.Context, employeeID string, basic, hra, deductions float64, month, year int) (Record, error) {
	if !ValidPeriod(month, year) {
		return Record{}, apperror.InvalidInput("month must be 1-12 and year plausible")
	}
	net, err := NetSalary(basic, hra, deductions)
	if err != nil {
		return Record{}, err
	}
	return s.Store.Create(ctx, Record{
		EmployeeID:  employeeID,
		BasicSalary: basic,
		HRA:         hra,
		Deductions:  deductions,
		NetSalary:   net,
		Month:       month,
		Year:        year,
	})
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, scope authz.Scope, month, year int) ([]Record, error) {
	return s.Store.List(ctx, scope, month, year)
}

func (s *Service) Update(ctx context.Context, id string, upd Update) (Record, error) {
	return s.Store.ApplyUpdate(ctx, id, upd)
}

// RenderPayslipPDF renders the payslip for download. The PDF is built in
// memory; nothing is written to disk.
func (s *Service) RenderPayslipPDF(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	period := time.Date(rec.Year, time.Month(rec.Month), 1, 0, 0, 0, 0, time.UTC)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s (%s)", rec.Employee, rec.EmployeeNo))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", period.Format("January 2006")))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Basic salary: %.2f", rec.BasicSalary))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("HRA: %.2f", rec.HRA))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Deductions: %.2f", rec.Deductions))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Net salary: %.2f", rec.NetSalary))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperror.Wrap(apperror.CodeUnavailable, "payslip rendering failed", err)
	}
	return buf.Bytes(), nil
}
