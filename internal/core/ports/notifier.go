package ports

import "github.com/jarvis-lab/netguard/internal/core/domain"

// EventNotifier pushes state changes to connected dashboard clients.
type EventNotifier interface {
	// NotifyDevice announces a new or updated device.
	NotifyDevice(device domain.Device)
	// NotifyAlert announces an alert creation or transition.
	NotifyAlert(alert domain.SecurityAlert)
	// NotifyVulnerability announces a new scanner finding.
	NotifyVulnerability(vuln domain.Vulnerability)
	// NotifyAnalysis announces a completed AI analysis.
	NotifyAnalysis(analysis domain.Analysis)
}
