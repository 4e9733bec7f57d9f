package documentshandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/authz"
	"ems/internal/domain/documents"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Store   *documents.Store
	Locator authz.Locator
}

func NewHandler(store *documents.Store, locator authz.Locator) *Handler {
	return &Handler{Store: store, Locator: locator}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	managers := middleware.RequireRole(authz.RoleSuperAdmin, authz.RoleDepartmentAdmin)

	r.Route("/employees/{ref}/documents", func(r chi.Router) {
		r.Use(middleware.RequirePrincipal)
		r.Get("/", h.handleGet)
		r.With(managers).Post("/", h.handleUpsert)
		r.With(managers).Patch("/{key}", h.handleUpdateKey)
		r.With(managers).Delete("/{key}", h.handleDeleteKey)
	})
}

func (h *Handler) resolveEmployee(w http.ResponseWriter, r *http.Request) (string, bool) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindEmployee, chi.URLParam(r, "ref"))
	if err != nil {
		api.FailError(w, err, reqID)
		return "", false
	}
	return own.EmployeeID, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := h.resolveEmployee(w, r)
	if !ok {
		return
	}
	docs, err := h.Store.Get(r.Context(), employeeID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, docs, reqID)
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := h.resolveEmployee(w, r)
	if !ok {
		return
	}

	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	docs, err := h.Store.Upsert(r.Context(), employeeID, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, docs, reqID)
}

type updateKeyRequest struct {
	FileURL string `json:"fileUrl"`
}

func (h *Handler) handleUpdateKey(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := h.resolveEmployee(w, r)
	if !ok {
		return
	}

	var payload updateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("fileUrl", payload.FileURL, "fileUrl is required")
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Store.UpdateKey(r.Context(), employeeID, chi.URLParam(r, "key"), payload.FileURL); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"message": "document updated"}, reqID)
}

func (h *Handler) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID, ok := h.resolveEmployee(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteKey(r.Context(), employeeID, chi.URLParam(r, "key")); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"message": "document removed"}, reqID)
}
