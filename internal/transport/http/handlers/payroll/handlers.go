package payrollhandler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ems/internal/apperror"
	"ems/internal/domain/audit"
	"ems/internal/domain/authz"
	"ems/internal/domain/payroll"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Service *payroll.Service
	Locator authz.Locator
	Audit   *audit.Service
}

func NewHandler(service *payroll.Service, locator authz.Locator, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Locator: locator, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Use(middleware.RequirePrincipal)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/payslip", h.handlePayslip)
		r.Post("/", h.handleGenerate)
		r.Put("/{id}", h.handleUpdate)
	})
}

type generateRequest struct {
	EmployeeID  string  `json:"employeeId"`
	BasicSalary float64 `json:"basicSalary"`
	HRA         float64 `json:"hra"`
	Deductions  float64 `json:"deductions"`
	Month       int     `json:"month"`
	Year        int     `json:"year"`
}

// handleGenerate requires the HR privilege. The privileged actor operates
// company-wide, so the target employee only needs to exist.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	if err := engine.AuthorizeHRPrivileged(r.Context(), principal); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	if v.Reject(w, reqID) {
		return
	}

	own, err := h.Locator.Employee(r.Context(), payload.EmployeeID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	rec, err := h.Service.Generate(r.Context(), own.EmployeeID, payload.BasicSalary, payload.HRA, payload.Deductions, payload.Month, payload.Year)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), principal.ActorID, string(principal.Role), "payroll.generate", "payroll", rec.ID,
		reqID, shared.ClientIP(r), nil, rec); err != nil {
		slog.Warn("audit record failed", "action", "payroll.generate", "err", err)
	}
	api.Created(w, rec, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	// The HR admin sees payroll across every department.
	scope := engine.ScopeFor(principal)
	if engine.CanViewSalary(r.Context(), principal) {
		scope = authz.Scope{All: true}
	}

	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	list, err := h.Service.List(r.Context(), scope, month, year)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) authorizeRecord(r *http.Request, engine *authz.Engine, principal authz.Principal, id string) (authz.Ownership, error) {
	own, err := engine.Authorize(r.Context(), principal, authz.KindPayroll, id)
	if err == nil {
		return own, nil
	}
	// Out-of-department records remain visible to the HR admin.
	if apperror.Is(err, apperror.CodeForbidden) && engine.CanViewSalary(r.Context(), principal) {
		return h.Locator.Resource(r.Context(), authz.KindPayroll, id)
	}
	return authz.Ownership{}, err
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := h.authorizeRecord(r, engine, principal, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	rec, err := h.Service.Get(r.Context(), own.ID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, rec, reqID)
}

type updateRequest struct {
	BasicSalary *float64 `json:"basicSalary"`
	HRA         *float64 `json:"hra"`
	Deductions  *float64 `json:"deductions"`
	Month       *int     `json:"month"`
	Year        *int     `json:"year"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	if err := engine.AuthorizeHRPrivileged(r.Context(), principal); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	var payload updateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}

	rec, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), payroll.Update{
		BasicSalary: payload.BasicSalary,
		HRA:         payload.HRA,
		Deductions:  payload.Deductions,
		Month:       payload.Month,
		Year:        payload.Year,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), principal.ActorID, string(principal.Role), "payroll.update", "payroll", rec.ID,
		reqID, shared.ClientIP(r), nil, rec); err != nil {
		slog.Warn("audit record failed", "action", "payroll.update", "err", err)
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := h.authorizeRecord(r, engine, principal, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	pdf, err := h.Service.RenderPayslipPDF(r.Context(), own.ID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payslip-%s.pdf", own.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("payslip write failed", "err", err)
	}
}
