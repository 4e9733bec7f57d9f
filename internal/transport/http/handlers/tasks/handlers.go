package taskshandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/audit"
	"ems/internal/domain/authz"
	"ems/internal/domain/directory"
	"ems/internal/domain/tasks"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Store     *tasks.Store
	Directory *directory.Store
	Locator   authz.Locator
	Audit     *audit.Service
}

func NewHandler(store *tasks.Store, dir *directory.Store, locator authz.Locator, auditSvc *audit.Service) *Handler {
	return &Handler{Store: store, Directory: dir, Locator: locator, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	managers := middleware.RequireRole(authz.RoleSuperAdmin, authz.RoleDepartmentAdmin)

	r.Route("/tasks", func(r chi.Router) {
		r.Use(middleware.RequirePrincipal)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.With(managers).Post("/", h.handleCreate)
		r.With(managers).Put("/{id}", h.handleUpdate)
		r.With(managers).Delete("/{id}", h.handleDelete)
		r.Patch("/{id}/status", h.handleUpdateStatus)
		r.Post("/{id}/comments", h.handleAddComment)
		r.With(managers).Post("/{id}/attachments", h.handleAddAttachment)
	})
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	AssignedTo  string `json:"assignedTo"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	v.Required("assignedTo", payload.AssignedTo, "assignedTo is required")
	var deadline *time.Time
	if payload.Deadline != "" {
		if parsed, ok := v.Date("deadline", payload.Deadline); ok {
			deadline = &parsed
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	// The assignee reference is a foreign key: it must resolve inside the
	// creator's scope before anything is written.
	own, err := engine.AuthorizeEmployee(r.Context(), principal, payload.AssignedTo)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	task, err := h.Store.Create(r.Context(), tasks.NewTask{
		Title:       payload.Title,
		Description: payload.Description,
		Deadline:    deadline,
		AssignedTo:  own.EmployeeID,
		AssignedBy:  principal.ActorID,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), principal.ActorID, string(principal.Role), "task.create", "task", task.ID,
		reqID, shared.ClientIP(r), nil, task); err != nil {
		slog.Warn("audit record failed", "action", "task.create", "err", err)
	}
	api.Created(w, task, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	list, err := h.Store.List(r.Context(), engine.ScopeFor(principal), principal.ActorID, r.URL.Query().Get("status"))
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

	own, err := engine.Authorize(r.Context(), principal, authz.KindTask, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	task, err := h.Store.Get(r.Context(), own.ID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, task, reqID)
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Deadline    *string `json:"deadline"`
	AssignedTo  *string `json:"assignedTo"`
	Status      *string `json:"status"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindTask, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	var payload updateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}

	upd := tasks.Update{
		Title:       payload.Title,
		Description: payload.Description,
		Status:      payload.Status,
	}
	if payload.Deadline != nil {
		parsed, err := shared.ParseDate(*payload.Deadline)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_input", "deadline must be a valid date", reqID)
			return
		}
		upd.Deadline = &parsed
	}
	if payload.AssignedTo != nil {
		// Reassignment targets must also be in scope.
		assignee, err := engine.AuthorizeEmployee(r.Context(), principal, *payload.AssignedTo)
		if err != nil {
			api.FailError(w, err, reqID)
			return
		}
		upd.AssignedTo = &assignee.EmployeeID
	}

	task, err := h.Store.Update(r.Context(), own.ID, upd)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, task, reqID)
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleUpdateStatus is the assignee's path: an employee may flip the status
// of a task assigned to them, nothing more.
func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindTask, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	var payload statusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	task, err := h.Store.UpdateStatus(r.Context(), own.ID, payload.Status)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, task, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindTask, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Store.Delete(r.Context(), own.ID); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), principal.ActorID, string(principal.Role), "task.delete", "task", own.ID,
		reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit record failed", "action", "task.delete", "err", err)
	}
	api.Success(w, map[string]string{"message": "task deleted"}, reqID)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindTask, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	var payload commentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("text", payload.Text, "comment text is required")
	if v.Reject(w, reqID) {
		return
	}

	comment, err := h.Store.AddComment(r.Context(), own.ID, payload.Text, principal.ActorID, h.actorName(r, principal))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, comment, reqID)
}

type attachmentRequest struct {
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
}

func (h *Handler) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindTask, chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	var payload attachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("fileName", payload.FileName, "fileName is required")
	v.Required("fileUrl", payload.FileURL, "fileUrl is required")
	if v.Reject(w, reqID) {
		return
	}

	attachment, err := h.Store.AddAttachment(r.Context(), own.ID, payload.FileName, payload.FileURL)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, attachment, reqID)
}

// actorName resolves a display name for comment bylines; failures degrade to
// the role label rather than failing the write.
func (h *Handler) actorName(r *http.Request, principal authz.Principal) string {
	switch principal.Role {
	case authz.RoleEmployee:
		if emp, err := h.Directory.GetEmployee(r.Context(), principal.ActorID); err == nil {
			return emp.Name
		}
	case authz.RoleDepartmentAdmin:
		if admin, err := h.Directory.GetAdmin(r.Context(), principal.ActorID); err == nil {
			return admin.Name
		}
	}
	return string(principal.Role)
}
