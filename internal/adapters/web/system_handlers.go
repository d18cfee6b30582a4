package web

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.currentStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not compute stats")
		return
	}
	respond(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := domain.SystemStatus{
		GeneratedAt: time.Now(),
		UptimeSec:   int64(time.Since(s.startedAt).Seconds()),
	}

	if s.Status != nil {
		status.Collectors = s.Status.Statuses()
	}

	if size, err := s.Store.DBSize(ctx); err == nil {
		status.DBSizeBytes = size
	}

	if tables, err := s.Store.ListCaptureTables(ctx); err == nil {
		for _, names := range tables {
			status.TableCount += len(names)
		}
	}

	// Host gauges are best effort; a failed probe leaves the zero value.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status.HostCPUUsage = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.HostMemUsage = vm.UsedPercent
	}

	respond(w, http.StatusOK, map[string]any{"status": status})
}

func (s *Server) handleFlushAllData(w http.ResponseWriter, r *http.Request) {
	result, err := s.Store.FlushAllData(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "flush failed: "+err.Error())
		return
	}

	// The in-memory registry must not resurrect flushed devices.
	if s.Registry != nil {
		s.Registry.Clear()
	}

	respond(w, http.StatusOK, map[string]any{"result": result})
}
