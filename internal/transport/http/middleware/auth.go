package middleware

import (
	"context"
	"net/http"
	"strings"

	"ems/internal/domain/auth"
	"ems/internal/domain/authz"
	"ems/internal/transport/http/api"
)

type ctxKey int

const ctxKeyPrincipal ctxKey = iota

// TokenCookie is the httpOnly cookie set at login. The Authorization header
// takes precedence when both are present.
const TokenCookie = "token"

// Auth attaches the authenticated principal to the request context. Requests
// without a token pass through anonymous; a bearer token that is present but
// invalid is rejected outright, never downgraded to anonymous. A stale cookie
// is expired and the request continues anonymous instead, so login and logout
// stay reachable for browsers still carrying one.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			fromHeader := token != ""
			if token == "" {
				if cookie, err := r.Cookie(TokenCookie); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := parsePrincipal(secret, token)
			if err != nil {
				if fromHeader {
					api.Fail(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token", GetRequestID(r.Context()))
					return
				}
				http.SetCookie(w, &http.Cookie{Name: TokenCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parsePrincipal(secret, token string) (authz.Principal, error) {
	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return authz.Principal{}, err
	}
	return authz.FromClaims(claims)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func GetPrincipal(ctx context.Context) (authz.Principal, bool) {
	principal, ok := ctx.Value(ctxKeyPrincipal).(authz.Principal)
	return principal, ok
}

func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetPrincipal(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a route group to the named roles. It implies
// RequirePrincipal.
func RequireRole(roles ...authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", GetRequestID(r.Context()))
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient role", GetRequestID(r.Context()))
		})
	}
}
