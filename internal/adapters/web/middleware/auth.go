// Package middleware carries the HTTP middleware the dashboard routes
// share: session authentication, role checks, and login rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

type contextKey string

const userKey contextKey = "user"

// CookieName is the session cookie the login handler sets.
const CookieName = "auth_token"

// UserFrom returns the authenticated user stored by Authenticate.
func UserFrom(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}

// TokenFrom extracts the session token from a request, cookie first,
// then the Authorization header for API clients.
func TokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Authenticate resolves the session token and loads the user into the
// request context. Requests without a valid session get 401, and a
// stale session cookie is cleared so the browser stops resending it.
func Authenticate(auth ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r)
			if token == "" {
				denyJSON(w, http.StatusUnauthorized, "authentication required")
				return
			}

			user, err := auth.ValidateToken(r.Context(), token)
			if err != nil {
				http.SetCookie(w, &http.Cookie{
					Name:   CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				denyJSON(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects users below the given role. The hierarchy is
// admin > operator > viewer.
func RequireRole(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				denyJSON(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !allows(user.Role, min) {
				denyJSON(w, http.StatusForbidden, "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allows(have, need domain.Role) bool {
	switch have {
	case domain.RoleAdmin:
		return true
	case domain.RoleOperator:
		return need != domain.RoleAdmin
	case domain.RoleViewer:
		return need == domain.RoleViewer
	}
	return false
}

func denyJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
