package directoryhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ems/internal/apperror"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/authz"
	"ems/internal/domain/directory"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Handler struct {
	Store   *directory.Store
	Service *directory.Service
	Locator authz.Locator
	Audit   *audit.Service
}

func NewHandler(store *directory.Store, service *directory.Service, locator authz.Locator, auditSvc *audit.Service) *Handler {
	return &Handler{Store: store, Service: service, Locator: locator, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	admins := middleware.RequireRole(authz.RoleSuperAdmin)
	managers := middleware.RequireRole(authz.RoleSuperAdmin, authz.RoleDepartmentAdmin)

	r.Route("/departments", func(r chi.Router) {
		r.With(managers).Get("/", h.handleListDepartments)
		r.With(managers).Get("/{ref}", h.handleGetDepartment)
		r.With(admins).Post("/", h.handleCreateDepartment)
		r.With(admins).Put("/{id}", h.handleUpdateDepartment)
		r.With(admins).Delete("/{id}", h.handleDeleteDepartment)
		r.With(admins).Post("/{id}/block", h.handleDepartmentStatus(directory.StatusInactive))
		r.With(admins).Post("/{id}/activate", h.handleDepartmentStatus(directory.StatusActive))
	})

	r.Route("/admins", func(r chi.Router) {
		r.Use(admins)
		r.Get("/", h.handleListAdmins)
		r.Post("/", h.handleCreateAdmin)
		r.Get("/{id}", h.handleGetAdmin)
		r.Put("/{id}", h.handleUpdateAdmin)
		r.Delete("/{id}", h.handleDeleteAdmin)
	})

	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequirePrincipal)
		r.Get("/", h.handleListEmployees)
		r.Get("/{ref}", h.handleGetEmployee)
		r.With(managers).Post("/", h.handleCreateEmployee)
		r.Put("/{ref}", h.handleUpdateEmployee)
		r.With(managers).Delete("/{ref}", h.handleDeleteEmployee)
	})
}

func (h *Handler) record(r *http.Request, principal authz.Principal, action, entityType, entityID string, before, after any) {
	err := h.Audit.Record(r.Context(), principal.ActorID, string(principal.Role), action, entityType, entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after)
	if err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

// --- departments ---

type departmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	depts, err := h.Store.ListDepartments(r.Context(), engine.ScopeFor(principal))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, depts, reqID)
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	dept, err := engine.AuthorizeDepartment(r.Context(), principal, chi.URLParam(r, "ref"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	full, err := h.Store.GetDepartment(r.Context(), dept.ID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, full, reqID)
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())

	var payload departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "department name is required")
	if v.Reject(w, reqID) {
		return
	}

	dept, err := h.Store.CreateDepartment(r.Context(), strings.TrimSpace(payload.Name), payload.Description)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	h.record(r, principal, "department.create", "department", dept.ID, nil, dept)
	api.Created(w, dept, reqID)
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	dept, err := h.Store.UpdateDepartment(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(payload.Name), payload.Description)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, dept, reqID)
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteDepartment(r.Context(), id); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	h.record(r, principal, "department.delete", "department", id, nil, nil)
	api.Success(w, map[string]string{"message": "department deleted"}, reqID)
}

func (h *Handler) handleDepartmentStatus(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())
		dept, err := h.Store.UpdateDepartmentStatus(r.Context(), chi.URLParam(r, "id"), status)
		if err != nil {
			api.FailError(w, err, reqID)
			return
		}
		api.Success(w, dept, reqID)
	}
}

// --- admins ---

type adminRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DepartmentID string `json:"departmentId"`
}

func (h *Handler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	admins, err := h.Store.ListAdmins(r.Context())
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, admins, reqID)
}

func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	admin, err := h.Store.GetAdmin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, admin, reqID)
}

func (h *Handler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())

	var payload adminRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("email", payload.Email, "email is required")
	v.Required("password", payload.Password, "password is required")
	v.Required("departmentId", payload.DepartmentID, "departmentId is required")
	if v.Reject(w, reqID) {
		return
	}

	admin, err := h.Service.CreateAdmin(r.Context(), payload.Name, strings.ToLower(strings.TrimSpace(payload.Email)), payload.Password, payload.DepartmentID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	h.record(r, principal, "admin.create", "department_admin", admin.ID, nil, admin)
	api.Created(w, admin, reqID)
}

func (h *Handler) handleUpdateAdmin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload adminRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	admin, err := h.Service.UpdateAdmin(r.Context(), chi.URLParam(r, "id"), payload.Name, strings.ToLower(strings.TrimSpace(payload.Email)), payload.Password, payload.DepartmentID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, admin, reqID)
}

func (h *Handler) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteAdmin(r.Context(), id); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	h.record(r, principal, "admin.delete", "department_admin", id, nil, nil)
	api.Success(w, map[string]string{"message": "admin deleted"}, reqID)
}

// --- employees ---

type employeeRequest struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	Phone         string   `json:"phone"`
	Position      string   `json:"position"`
	DepartmentID  string   `json:"departmentId"`
	DateOfJoining *string  `json:"dateOfJoining"`
	Salary        *float64 `json:"salary"`
	Status        string   `json:"status"`
}

func sanitizeEmployees(list []directory.Employee, canSeeSalary bool) []directory.Employee {
	if canSeeSalary {
		return list
	}
	out := make([]directory.Employee, len(list))
	for i, emp := range list {
		out[i] = emp.WithoutSalary()
	}
	return out
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	list, err := h.Store.ListEmployees(r.Context(), engine.ScopeFor(principal))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, sanitizeEmployees(list, engine.CanViewSalary(r.Context(), principal)), reqID)
}

// authorizeRecord resolves an employee reference, extending reach to the HR
// admin for out-of-department records: salary management is company-wide.
func (h *Handler) authorizeRecord(r *http.Request, engine *authz.Engine, principal authz.Principal, ref string) (authz.Ownership, error) {
	own, err := engine.Authorize(r.Context(), principal, authz.KindEmployee, ref)
	if err == nil {
		return own, nil
	}
	if apperror.Is(err, apperror.CodeForbidden) && engine.CanViewSalary(r.Context(), principal) {
		return h.Locator.Employee(r.Context(), ref)
	}
	return authz.Ownership{}, err
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := h.authorizeRecord(r, engine, principal, chi.URLParam(r, "ref"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	emp, err := h.Store.GetEmployee(r.Context(), own.EmployeeID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if !engine.CanViewSalary(r.Context(), principal) {
		emp = emp.WithoutSalary()
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("email", payload.Email, "email is required")
	v.Required("password", payload.Password, "password is required")
	v.Required("departmentId", payload.DepartmentID, "departmentId is required")
	if v.Reject(w, reqID) {
		return
	}

	// The admin can only hire into its own department.
	dept, err := engine.AuthorizeDepartment(r.Context(), principal, payload.DepartmentID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	emp, err := h.Service.CreateEmployee(r.Context(), directory.NewEmployee{
		Name:          payload.Name,
		Email:         strings.ToLower(strings.TrimSpace(payload.Email)),
		Password:      payload.Password,
		Phone:         payload.Phone,
		Position:      payload.Position,
		DepartmentID:  dept.ID,
		DateOfJoining: payload.DateOfJoining,
		Salary:        payload.Salary,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	h.record(r, principal, "employee.create", "employee", emp.ID, nil, emp.WithoutSalary())
	api.Created(w, emp, reqID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := h.authorizeRecord(r, engine, principal, chi.URLParam(r, "ref"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
		return
	}

	upd := directory.EmployeeUpdate{
		Name:  payload.Name,
		Phone: payload.Phone,
	}
	if payload.Password != "" {
		hash, err := auth.HashPassword(payload.Password)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "unavailable", "password hashing failed", reqID)
			return
		}
		upd.PasswordHash = hash
	}
	// Employees may touch only their own profile basics; everything else is
	// reserved for admins.
	if principal.Role != authz.RoleEmployee {
		upd.Email = strings.ToLower(strings.TrimSpace(payload.Email))
		upd.Position = payload.Position
		upd.Status = payload.Status
		upd.DateOfJoining = payload.DateOfJoining
		if payload.Salary != nil {
			if !engine.CanViewSalary(r.Context(), principal) {
				api.Fail(w, http.StatusForbidden, "forbidden", "hr privilege required to change salary", reqID)
				return
			}
			upd.Salary = payload.Salary
		}
	}

	emp, err := h.Store.UpdateEmployee(r.Context(), own.EmployeeID, upd)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if !engine.CanViewSalary(r.Context(), principal) {
		emp = emp.WithoutSalary()
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	engine := authz.RequestEngine(h.Locator)

	own, err := engine.Authorize(r.Context(), principal, authz.KindEmployee, chi.URLParam(r, "ref"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if err := h.Store.DeleteEmployee(r.Context(), own.EmployeeID); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	h.record(r, principal, "employee.delete", "employee", own.EmployeeID, nil, nil)
	api.Success(w, map[string]string{"message": "employee deleted"}, reqID)
}
