package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jarvis-lab/netguard/internal/adapters/web/middleware"
	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	// Login is the only unauthenticated API route and the one worth
	// brute-forcing, so it carries its own limiter on top of the
	// account lockout in the auth service.
	loginLimiter := middleware.NewRateLimiter(5, time.Minute)
	r.Handle("/api/auth/login",
		middleware.RateLimit(loginLimiter)(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)

	authenticate := middleware.Authenticate(s.Auth)
	operator := middleware.RequireRole(domain.RoleOperator)
	admin := middleware.RequireRole(domain.RoleAdmin)
	asOperator := func(h http.HandlerFunc) http.Handler { return operator(h) }
	asAdmin := func(h http.HandlerFunc) http.Handler { return admin(h) }

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authenticate)

	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)

	api.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{mac}", s.handleGetDevice).Methods(http.MethodGet)
	api.Handle("/devices/{mac}/trust", asOperator(s.handleTrustDevice)).Methods(http.MethodPost)
	api.Handle("/devices/{mac}/notes", asOperator(s.handleDeviceNotes)).Methods(http.MethodPost)

	api.HandleFunc("/vulnerabilities", s.handleListVulnerabilities).Methods(http.MethodGet)
	api.Handle("/vulnerabilities/{id}/resolve", asOperator(s.handleResolveVulnerability)).Methods(http.MethodPost)

	api.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/statistics", s.handleAlertStatistics).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{alertID}/history", s.handleAlertHistory).Methods(http.MethodGet)
	api.Handle("/alerts/{alertID}/resolve", asOperator(s.handleResolveAlert)).Methods(http.MethodPost)
	api.Handle("/alerts/{alertID}/false-positive", asOperator(s.handleFalsePositive)).Methods(http.MethodPost)
	// Remediation runs shell commands on the monitor host, so it stays
	// with admins.
	api.Handle("/alerts/{alertID}/auto-remediate", asAdmin(s.handleAutoRemediate)).Methods(http.MethodPost)

	api.HandleFunc("/alert-rules", s.handleListRules).Methods(http.MethodGet)
	api.Handle("/alert-rules/{name}", asOperator(s.handleUpdateRule)).Methods(http.MethodPut)

	api.HandleFunc("/analysis/latest", s.handleLatestAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/analysis/history", s.handleAnalysisHistory).Methods(http.MethodGet)

	api.HandleFunc("/tables", s.handleListTables).Methods(http.MethodGet)
	api.HandleFunc("/table/{name}", s.handleTableRows).Methods(http.MethodGet)

	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/system-status", s.handleSystemStatus).Methods(http.MethodGet)
	api.Handle("/flush-all-data", asAdmin(s.handleFlushAllData)).Methods(http.MethodPost)

	api.HandleFunc("/scores/at-risk", s.handleAtRiskDevices).Methods(http.MethodGet)
	api.Handle("/scores/recompute", asOperator(s.handleRecomputeScores)).Methods(http.MethodPost)

	api.Handle("/report/security.pdf", asOperator(s.handleSecurityReport)).Methods(http.MethodGet)

	r.Handle("/ws", authenticate(http.HandlerFunc(s.WS.HandleWebSocket)))
	r.Handle("/metrics", authenticate(promhttp.Handler())).Methods(http.MethodGet)

	r.PathPrefix("/").Handler(s.staticHandler())

	return r
}
