package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jarvis-lab/netguard/internal/adapters/storage"
)

func (s *Server) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	includeResolved := r.URL.Query().Get("include_resolved") == "true"
	limit := queryInt(r, "limit", 100)

	vulns, err := s.Store.ListVulnerabilities(r.Context(), includeResolved, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list vulnerabilities")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"vulnerabilities": vulns,
		"count":           len(vulns),
	})
}

func (s *Server) handleResolveVulnerability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid vulnerability id")
		return
	}

	if err := s.Store.ResolveVulnerability(r.Context(), uint(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "vulnerability not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not resolve vulnerability")
		return
	}

	respond(w, http.StatusOK, map[string]any{"id": id})
}
