package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jarvis-lab/netguard/internal/adapters/storage"
	"github.com/jarvis-lab/netguard/internal/adapters/web/middleware"
	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	status := domain.AlertStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 100)

	alerts, err := s.Store.ListAlerts(r.Context(), status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list alerts")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleAlertStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.AlertStatistics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not compute alert statistics")
		return
	}
	respond(w, http.StatusOK, map[string]any{"statistics": stats})
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertID"]

	history, err := s.Store.HistoryForAlert(r.Context(), alertID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load alert history")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"alert_id": alertID,
		"history":  history,
	})
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertID"]
	username := usernameFrom(r)

	if err := s.Alerts.Resolve(r.Context(), alertID, username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "alert not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not resolve alert")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"alert_id": alertID,
		"status":   domain.AlertResolved,
	})
}

func (s *Server) handleFalsePositive(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertID"]
	username := usernameFrom(r)

	if err := s.Alerts.MarkFalsePositive(r.Context(), alertID, username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "alert not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not update alert")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"alert_id": alertID,
		"status":   domain.AlertFalsePositive,
	})
}

func (s *Server) handleAutoRemediate(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertID"]

	resolved, err := s.Alerts.Remediate(r.Context(), alertID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "alert not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"alert_id": alertID,
		"resolved": resolved,
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.Store.ListRules(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list alert rules")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rule, err := s.Store.GetRule(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "rule not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not load rule")
		return
	}

	// Partial update: only fields present in the body change.
	var body struct {
		Enabled            *bool    `json:"enabled"`
		ThresholdValue     *float64 `json:"threshold_value"`
		TimeWindowSeconds  *int     `json:"time_window_seconds"`
		Severity           *string  `json:"severity"`
		AutoRemediate      *bool    `json:"auto_remediate"`
		RemediationCommand *string  `json:"remediation_command"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Enabled != nil {
		rule.Enabled = *body.Enabled
	}
	if body.ThresholdValue != nil {
		rule.ThresholdValue = *body.ThresholdValue
	}
	if body.TimeWindowSeconds != nil {
		rule.TimeWindowSeconds = *body.TimeWindowSeconds
	}
	if body.Severity != nil {
		rule.Severity = domain.Severity(*body.Severity)
	}
	if body.AutoRemediate != nil {
		rule.AutoRemediate = *body.AutoRemediate
	}
	if body.RemediationCommand != nil {
		rule.RemediationCommand = *body.RemediationCommand
	}

	if err := rule.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Store.SaveRule(r.Context(), rule); err != nil {
		respondError(w, http.StatusInternalServerError, "could not save rule")
		return
	}

	respond(w, http.StatusOK, map[string]any{"rule": rule})
}

// usernameFrom names the acting operator for audit entries.
func usernameFrom(r *http.Request) string {
	if user, ok := middleware.UserFrom(r.Context()); ok {
		return user.Username
	}
	return "unknown"
}
