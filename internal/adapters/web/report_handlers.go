package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/jarvis-lab/netguard/internal/adapters/storage"
	"github.com/jarvis-lab/netguard/internal/adapters/web/middleware"
	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func (s *Server) handleSecurityReport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	data, err := s.assembleReport(r.Context(), user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not assemble report data")
		return
	}

	pdf, err := s.Exporter.Export(data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not render report")
		return
	}

	filename := fmt.Sprintf("netguard-security-report-%s.pdf", data.GeneratedAt.Format("20060102"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) assembleReport(ctx context.Context, user *domain.User) (domain.ReportData, error) {
	data := domain.ReportData{GeneratedAt: time.Now()}
	if user != nil {
		data.GeneratedBy = user.Username
	}

	devices, err := s.Store.ListDevices(ctx, domain.DeviceFilter{})
	if err != nil {
		return data, fmt.Errorf("list devices: %w", err)
	}
	alerts, err := s.Store.ListAlerts(ctx, domain.AlertActive, 50)
	if err != nil {
		return data, fmt.Errorf("list alerts: %w", err)
	}
	vulns, err := s.Store.ListVulnerabilities(ctx, false, 100)
	if err != nil {
		return data, fmt.Errorf("list vulnerabilities: %w", err)
	}

	latest, err := s.Store.LatestAnalysis(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return data, fmt.Errorf("latest analysis: %w", err)
	}

	data.Devices = devices
	data.Alerts = alerts
	data.Vulns = vulns
	data.Latest = latest
	data.Stats = buildReportStats(devices, alerts, vulns)
	return data, nil
}

func buildReportStats(devices []domain.Device, alerts []domain.SecurityAlert, vulns []domain.Vulnerability) domain.ReportStats {
	stats := domain.ReportStats{
		TotalDevices:  len(devices),
		ActiveAlerts:  len(alerts),
		OpenVulns:     len(vulns),
		DevicesByType: make(map[string]int),
	}

	vendorCounts := make(map[string]int)
	scoreSum := 0
	for _, d := range devices {
		stats.DevicesByType[string(d.Type)]++
		switch d.Type {
		case domain.TypeIoT:
			stats.IoTCount++
		case domain.TypeUnknown:
			stats.UnknownCount++
		}
		if d.Vendor != "" && d.Vendor != "Unknown" {
			vendorCounts[d.Vendor]++
		}
		scoreSum += d.SecurityScore
		if d.SecurityScore < domain.AtRiskThreshold {
			stats.AtRiskDevices++
		}
	}
	if len(devices) > 0 {
		stats.AverageScore = float64(scoreSum) / float64(len(devices))
	}

	for _, a := range alerts {
		if a.Severity == domain.SeverityCritical {
			stats.CriticalAlerts++
		}
	}

	stats.TopVendors = topVendors(vendorCounts, 5)
	return stats
}

func topVendors(counts map[string]int, n int) []domain.VendorStat {
	out := make([]domain.VendorStat, 0, len(counts))
	for name, count := range counts {
		out = append(out, domain.VendorStat{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
