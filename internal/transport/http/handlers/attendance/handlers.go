package attendancehandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/attendance"
	"ems/internal/domain/authz"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Store   *attendance.Store
	Locator authz.Locator
}

func NewHandler(store *attendance.Store, locator authz.Locator) *Handler {
	return &Handler{Store: store, Locator: locator}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	managers := middleware.RequireRole(authz.RoleSuperAdmin, authz.RoleDepartmentAdmin)

	r.Route("/attendance", func(r chi.Router) {
		// Employees may mark their own day; AuthorizeEmployee narrows them to self.
		r.With(middleware.RequirePrincipal).Post("/", h.handleMark)
		r.With(managers).Delete("/", h.handleUnmark)
	})
	r.With(middleware.RequirePrincipal).Get("/employees/{ref}/attendance", h.handleList)
	r.With(middleware.RequirePrincipal).Get("/employees/{ref}/attendance/summary", h.handleSummary)
}

type markRequest struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
	Status     string `json:"status"`
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	var payload markRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	date, _ := v.Date("date", payload.Date)
	if !attendance.ValidStatus(payload.Status) {
		v.Add("status", "must be Present, Absent, or Leave")
	}
	if v.Reject(w, reqID) {
		return
	}

	own, err := engine.AuthorizeEmployee(r.Context(), principal, payload.EmployeeID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	rec, err := h.Store.Mark(r.Context(), own.EmployeeID, date, payload.Status)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleUnmark(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	employeeRef := r.URL.Query().Get("employeeId")
	v := shared.NewValidator()
	v.Required("employeeId", employeeRef, "employeeId is required")
	date, _ := v.Date("date", r.URL.Query().Get("date"))
	if v.Reject(w, reqID) {
		return
	}

	own, err := engine.AuthorizeEmployee(r.Context(), principal, employeeRef)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Store.Unmark(r.Context(), own.EmployeeID, date); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"message": "attendance removed", "date": shared.FormatDate(date)}, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindEmployee, chi.URLParam(r, "ref"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	records, err := h.Store.ListForEmployee(r.Context(), own.EmployeeID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindEmployee, chi.URLParam(r, "ref"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	summary := map[string]int{}
	for _, status := range []string{attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusLeave} {
		count, err := h.Store.CountForEmployee(r.Context(), own.EmployeeID, status)
		if err != nil {
			api.FailError(w, err, reqID)
			return
		}
		summary[status] = count
	}
	api.Success(w, summary, reqID)
}
