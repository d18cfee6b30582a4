package ports

import (
	"context"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// DeviceStore persists the device inventory. Devices are never deleted;
// enrichment only ever fills or refreshes fields.
type DeviceStore interface {
	// SaveDevice upserts a single device keyed by MAC (IP fallback).
	SaveDevice(ctx context.Context, device domain.Device) error
	// SaveDevicesBatch upserts many devices in one transaction.
	SaveDevicesBatch(ctx context.Context, devices []domain.Device) error
	// GetDeviceByMAC retrieves a device by its MAC address.
	GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error)
	// GetDeviceByIP retrieves a device by its current IP address.
	GetDeviceByIP(ctx context.Context, ip string) (*domain.Device, error)
	// ListDevices returns devices matching the filter.
	ListDevices(ctx context.Context, filter domain.DeviceFilter) ([]domain.Device, error)
	// SetTrusted flags a device as operator-trusted.
	SetTrusted(ctx context.Context, mac string, trusted bool) error
	// SetNotes attaches operator notes to a device.
	SetNotes(ctx context.Context, mac, notes string) error
	// UpdateScore writes a freshly computed score and grade.
	UpdateScore(ctx context.Context, mac string, score int, grade string) error
}

// VulnerabilityStore persists scanner findings.
type VulnerabilityStore interface {
	// SaveVulnerability records a new finding.
	SaveVulnerability(ctx context.Context, vuln *domain.Vulnerability) error
	// HasRecentVulnerability reports an unresolved finding of the same type
	// for the device since the given time (the scanner's dedup window).
	HasRecentVulnerability(ctx context.Context, deviceIP, vulnType string, since time.Time) (bool, error)
	// ListVulnerabilities returns findings, unresolved first.
	ListVulnerabilities(ctx context.Context, includeResolved bool, limit int) ([]domain.Vulnerability, error)
	// UnresolvedByDevice returns open findings for one device.
	UnresolvedByDevice(ctx context.Context, deviceIP string) ([]domain.Vulnerability, error)
	// CountUnresolvedSevere counts open CRITICAL/HIGH findings for a device.
	CountUnresolvedSevere(ctx context.Context, deviceIP string) (int, error)
	// ResolveVulnerability marks a finding resolved.
	ResolveVulnerability(ctx context.Context, id uint) error
}

// AlertStore persists security alerts, their history, and the rule table.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *domain.SecurityAlert) error
	// FindActiveDuplicate returns an active alert with the same
	// (type, source IP) created after the given time, or nil.
	FindActiveDuplicate(ctx context.Context, alertType, sourceIP string, since time.Time) (*domain.SecurityAlert, error)
	UpdateAlert(ctx context.Context, alert *domain.SecurityAlert) error
	GetAlertByAlertID(ctx context.Context, alertID string) (*domain.SecurityAlert, error)
	// ListAlerts returns alerts filtered by status ("" for all), ordered
	// severity-first then recency.
	ListAlerts(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.SecurityAlert, error)
	// AppendHistory records one state transition.
	AppendHistory(ctx context.Context, entry *domain.AlertHistoryEntry) error
	HistoryForAlert(ctx context.Context, alertID string) ([]domain.AlertHistoryEntry, error)
	AlertStatistics(ctx context.Context) (domain.AlertStatistics, error)

	// Rule management. SeedDefaultRules inserts missing rules only.
	ListRules(ctx context.Context) ([]domain.AlertRule, error)
	GetRule(ctx context.Context, name string) (*domain.AlertRule, error)
	SaveRule(ctx context.Context, rule *domain.AlertRule) error
	SeedDefaultRules(ctx context.Context, rules []domain.AlertRule) error
}

// AnalysisStore persists AI analysis results and cycle outcomes.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error
	LatestAnalysis(ctx context.Context) (*domain.Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]domain.Analysis, error)
	// RecordCycle logs one aggregator cycle, success or failure.
	RecordCycle(ctx context.Context, cycle *domain.AnalysisCycle) error
}

// IoTStore persists the behavioral analysis side tables.
type IoTStore interface {
	SaveCommunications(ctx context.Context, comms []domain.IoTCommunication) error
	SaveBehavior(ctx context.Context, behavior *domain.IoTBehavior) error
	// UpsertIoTScore writes the score sheet, maintaining the history ring.
	UpsertIoTScore(ctx context.Context, score *domain.IoTScore) error
	GetIoTScore(ctx context.Context, deviceIP string) (*domain.IoTScore, error)
}

// UserRepository defines the persistence layer for dashboard users.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// Store is the full persistence surface the application wires at bootstrap.
type Store interface {
	DeviceStore
	VulnerabilityStore
	AlertStore
	AnalysisStore
	IoTStore
	UserRepository
	CaptureStore
	CaptureQueries

	// FlushAllData drops capture run tables and clears derived tables,
	// preserving templates and alert rules.
	FlushAllData(ctx context.Context) (*domain.FlushResult, error)
	// Stats computes the dashboard aggregate.
	Stats(ctx context.Context) (domain.SystemStats, error)
	// DBSize reports the database size in bytes.
	DBSize(ctx context.Context) (int64, error)
	Close() error
}
