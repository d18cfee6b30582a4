package web

import (
	"errors"
	"net/http"

	"github.com/jarvis-lab/netguard/internal/adapters/web/middleware"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/services/auth"
)

// sessionMaxAge matches the service-side session TTL.
const sessionMaxAge = 24 * 60 * 60

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeBody(r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.Auth.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, auth.ErrTooManyAttempts) {
			respondError(w, http.StatusTooManyRequests, "too many failed attempts")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := s.Auth.ValidateToken(r.Context(), token)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session setup failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   sessionMaxAge,
	})

	respond(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFrom(r); token != "" {
		_ = s.Auth.Logout(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   middleware.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	respond(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respond(w, http.StatusOK, map[string]any{"user": user})
}
