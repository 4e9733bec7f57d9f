package leavehandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/audit"
	"ems/internal/domain/authz"
	"ems/internal/domain/leave"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Locator authz.Locator
	Audit   *audit.Service
}

func NewHandler(service *leave.Service, locator authz.Locator, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Locator: locator, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	deciders := middleware.RequireRole(authz.RoleSuperAdmin, authz.RoleDepartmentAdmin)

	r.Route("/leave-requests", func(r chi.Router) {
		r.Use(middleware.RequirePrincipal)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.With(middleware.RequireRole(authz.RoleEmployee)).Post("/", h.handleCreate)
		r.With(deciders).Post("/{id}/approve", h.handleDecide(leave.StatusApproved))
		r.With(deciders).Post("/{id}/reject", h.handleDecide(leave.StatusRejected))
	})
}

type createRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	Reason   string `json:"reason"`
}

// handleCreate files a leave request for the calling employee. The subject is
// always the principal itself; there is no way to apply on someone's behalf.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())

	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	from, _ := v.Date("fromDate", payload.FromDate)
	to, _ := v.Date("toDate", payload.ToDate)
	v.DateOrder("fromDate", from, "toDate", to)
	if v.Reject(w, reqID) {
		return
	}

	req, err := h.Service.Create(r.Context(), principal.ActorID, from, to, payload.Reason)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, req, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	list, err := h.Service.List(r.Context(), engine.ScopeFor(principal), r.URL.Query().Get("status"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindLeaveRequest, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	req, err := h.Service.Get(r.Context(), own.ID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, req, reqID)
}

func (h *Handler) handleDecide(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())
		principal, _ := middleware.GetPrincipal(r.Context())
		engine := authz.RequestEngine(h.Locator)

		own, err := engine.Authorize(r.Context(), principal, authz.KindLeaveRequest, chi.URLParam(r, "id"))
		if err != nil {
			api.FailError(w, err, reqID)
			return
		}
		req, err := h.Service.Decide(r.Context(), own.ID, status, principal.ActorID)
		if err != nil {
			api.FailError(w, err, reqID)
			return
		}
		action := "leave.approve"
		if status == leave.StatusRejected {
			action = "leave.reject"
		}
		if err := h.Audit.Record(r.Context(), principal.ActorID, string(principal.Role), action, "leave_request", req.ID,
			reqID, shared.ClientIP(r), nil, req); err != nil {
			slog.Warn("audit record failed", "action", action, "err", err)
		}
		api.Success(w, req, reqID)
	}
}
