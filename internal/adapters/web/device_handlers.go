package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jarvis-lab/netguard/internal/adapters/storage"
	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DeviceFilter{
		Type:     domain.DeviceType(q.Get("type")),
		Category: q.Get("category"),
		Vendor:   q.Get("vendor"),
		AtRisk:   q.Get("at_risk") == "true",
	}

	devices, err := s.Store.ListDevices(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list devices")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	mac := domain.NormalizeMAC(mux.Vars(r)["mac"])

	device, err := s.Store.GetDeviceByMAC(r.Context(), mac)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "device not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not load device")
		return
	}

	vulns, err := s.Store.UnresolvedByDevice(r.Context(), device.IP)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load vulnerabilities")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"device":          device,
		"vulnerabilities": vulns,
	})
}

func (s *Server) handleTrustDevice(w http.ResponseWriter, r *http.Request) {
	mac := domain.NormalizeMAC(mux.Vars(r)["mac"])

	var body struct {
		Trusted *bool `json:"trusted"`
	}
	if err := decodeBody(r, &body); err != nil || body.Trusted == nil {
		respondError(w, http.StatusBadRequest, "body must carry a trusted flag")
		return
	}

	if err := s.Store.SetTrusted(r.Context(), mac, *body.Trusted); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "device not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not update device")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"mac":     mac,
		"trusted": *body.Trusted,
	})
}

func (s *Server) handleDeviceNotes(w http.ResponseWriter, r *http.Request) {
	mac := domain.NormalizeMAC(mux.Vars(r)["mac"])

	// An empty notes string is valid: it clears the field.
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.Store.SetNotes(r.Context(), mac, body.Notes); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "device not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not update device")
		return
	}

	respond(w, http.StatusOK, map[string]any{"mac": mac})
}
