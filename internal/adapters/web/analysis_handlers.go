package web

import (
	"errors"
	"net/http"

	"github.com/jarvis-lab/netguard/internal/adapters/storage"
)

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.Store.LatestAnalysis(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// No cycle has completed yet; the dashboard shows a placeholder.
			respond(w, http.StatusOK, map[string]any{"analysis": nil})
			return
		}
		respondError(w, http.StatusInternalServerError, "could not load analysis")
		return
	}
	respond(w, http.StatusOK, map[string]any{"analysis": analysis})
}

func (s *Server) handleAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	analyses, err := s.Store.ListAnalyses(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list analyses")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}
