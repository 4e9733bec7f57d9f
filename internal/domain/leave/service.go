package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ems/internal/apperror"
	"ems/internal/domain/authz"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	Store  *Store
	Mailer Mailer
	From   string
}

func NewService(store *Store, mailer Mailer, from string) *Service {
	return &Service{Store: store, Mailer: mailer, From: from}
}

func (s *Service) Create(ctx context.Context, employeeID string, from, to time.Time, reason string) (Request, error) {
	if to.Before(from) {
		return Request{}, apperror.InvalidInput("toDate must be on or after fromDate")
	}
	return s.Store.Create(ctx, employeeID, from, to, reason)
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, scope authz.Scope, status string) ([]Request, error) {
	return s.Store.List(ctx, scope, status)
}

// Decide applies the terminal transition and notifies the employee. The
// notification is best effort; a mail failure never rolls back the decision.
func (s *Service) Decide(ctx context.Context, id, status, decidedBy string) (Request, error) {
	if status != StatusApproved && status != StatusRejected {
		return Request{}, apperror.InvalidInput("status must be Approved or Rejected")
	}
	req, err := s.Store.Decide(ctx, id, status, decidedBy)
	if err != nil {
		return Request{}, err
	}

	if s.Mailer != nil {
		if email, lookupErr := s.employeeEmail(ctx, req.EmployeeID); lookupErr == nil && email != "" {
			subject := fmt.Sprintf("Leave request %s", status)
			body := fmt.Sprintf("Your leave request for %s to %s has been %s.",
				req.FromDate.Format("2006-01-02"), req.ToDate.Format("2006-01-02"), status)
			if err := s.Mailer.Send(ctx, s.From, email, subject, body); err != nil {
				slog.Warn("leave decision mail failed", "requestId", req.ID, "err", err)
			}
		}
	}
	return req, nil
}

func (s *Service) employeeEmail(ctx context.Context, employeeID string) (string, error) {
	var email string
	err := s.Store.DB.QueryRow(ctx, "SELECT email FROM employees WHERE id = $1", employeeID).Scan(&email)
	return email, err
}
