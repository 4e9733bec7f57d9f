package authhandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

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
	Store    *directory.Store
	Audit    *audit.Service
	Secret   string
	TokenTTL time.Duration
	Secure   bool
}

func NewHandler(store *directory.Store, auditSvc *audit.Service, secret string, ttl time.Duration, secure bool) *Handler {
	return &Handler{Store: store, Audit: auditSvc, Secret: secret, TokenTTL: ttl, Secure: secure}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/superadmin/login", h.handleLogin(authz.RoleSuperAdmin))
		r.Post("/admin/login", h.handleLogin(authz.RoleDepartmentAdmin))
		r.Post("/employee/login", h.handleLogin(authz.RoleEmployee))
		r.Post("/logout", h.handleLogout)
		r.With(middleware.RequirePrincipal).Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleLogin authenticates against the account table for one role. Each role
// has its own endpoint; a credential valid in one table never yields a token
// for another role.
func (h *Handler) handleLogin(role authz.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())

		var payload loginRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_input", "invalid request payload", reqID)
			return
		}
		payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))
		if payload.Email == "" || payload.Password == "" {
			api.Fail(w, http.StatusBadRequest, "invalid_input", "email and password are required", reqID)
			return
		}

		creds, err := h.credentials(r.Context(), role, payload.Email)
		if err != nil {
			api.Fail(w, http.StatusUnauthorized, "unauthenticated", "invalid credentials", reqID)
			return
		}
		if err := auth.CheckPassword(creds.PasswordHash, payload.Password); err != nil {
			api.Fail(w, http.StatusUnauthorized, "unauthenticated", "invalid credentials", reqID)
			return
		}
		if creds.Status == directory.StatusInactive {
			api.Fail(w, http.StatusForbidden, "forbidden", "account is inactive", reqID)
			return
		}

		token, err := auth.GenerateToken(h.Secret, auth.Claims{
			Role:         string(role),
			ActorID:      creds.ID,
			DepartmentID: creds.DepartmentID,
		}, h.TokenTTL)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "unavailable", "failed to issue token", reqID)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.TokenCookie,
			Value:    token,
			Path:     "/",
			MaxAge:   int(h.TokenTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.Secure,
			SameSite: http.SameSiteStrictMode,
		})

		if err := h.Audit.Record(r.Context(), creds.ID, string(role), "auth.login", "account", creds.ID, reqID, shared.ClientIP(r), nil, nil); err != nil {
			slog.Warn("audit record failed", "action", "auth.login", "err", err)
		}

		api.Success(w, loginResponse{
			Token: token,
			Role:  string(role),
			ID:    creds.ID,
			Name:  creds.Name,
			Email: creds.Email,
		}, reqID)
	}
}

func (h *Handler) credentials(ctx context.Context, role authz.Role, email string) (directory.Credentials, error) {
	switch role {
	case authz.RoleSuperAdmin:
		return h.Store.SuperAdminByEmail(ctx, email)
	case authz.RoleDepartmentAdmin:
		return h.Store.AdminByEmail(ctx, email)
	case authz.RoleEmployee:
		return h.Store.EmployeeByEmail(ctx, email)
	}
	return directory.Credentials{}, apperror.Unauthenticated("unknown role")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	api.Success(w, map[string]string{"message": "logged out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	api.Success(w, map[string]string{
		"role":         string(principal.Role),
		"id":           principal.ActorID,
		"departmentId": principal.DepartmentID,
	}, middleware.GetRequestID(r.Context()))
}
