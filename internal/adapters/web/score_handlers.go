package web

import (
	"net/http"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func (s *Server) handleAtRiskDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.Store.ListDevices(r.Context(), domain.DeviceFilter{AtRisk: true})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list devices")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"devices":   devices,
		"count":     len(devices),
		"threshold": domain.AtRiskThreshold,
	})
}

func (s *Server) handleRecomputeScores(w http.ResponseWriter, r *http.Request) {
	scored, err := s.Scorer.ScoreAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "scoring pass failed: "+err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]any{"scored": scored})
}
