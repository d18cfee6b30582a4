package domain

import (
	"fmt"
	"strings"
	"time"
)

// AlertStatus is the lifecycle state of a security alert.
type AlertStatus string

const (
	AlertActive        AlertStatus = "active"
	AlertResolved      AlertStatus = "resolved"
	AlertFalsePositive AlertStatus = "false_positive"
)

// History actions recorded on every alert state transition.
const (
	HistoryCreated           = "created"
	HistoryRecurrence        = "recurrence"
	HistoryResolved          = "resolved"
	HistoryAutoRemediation   = "auto_remediation"
	HistoryRemediationFailed = "auto_remediation_failed"
	HistoryFalsePositive     = "false_positive"
)

// ResolvedByRemediation marks alerts closed by a successful remediation command.
const ResolvedByRemediation = "auto_remediation"

// SecurityAlert is a deduplicated security event raised by the alert engine.
// Identity for dedup purposes is (AlertType, SourceIP) while the alert stays
// active; a repeat within the dedup window bumps RecurrenceCount instead of
// creating a new row.
type SecurityAlert struct {
	ID          uint        `json:"id"`
	AlertID     string      `json:"alert_id"`
	AlertType   string      `json:"alert_type"`
	Severity    Severity    `json:"severity"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	SourceIP    string      `json:"source_ip"`
	TargetIP    string      `json:"target_ip,omitempty"`
	Status      AlertStatus `json:"status"`

	AffectedDevices  []string `json:"affected_devices,omitempty"`
	ThreatIndicators []string `json:"threat_indicators,omitempty"`
	RemediationSteps []string `json:"remediation_steps,omitempty"`

	AutoRemediationAvailable bool   `json:"auto_remediation_available"`
	RemediationCommand       string `json:"auto_remediation_command,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastSeen        time.Time  `json:"last_seen"`
	RecurrenceCount int        `json:"recurrence_count"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	FalsePositive   bool       `json:"false_positive"`
}

// AlertHistoryEntry records one action taken on an alert.
type AlertHistoryEntry struct {
	ID          uint      `json:"id"`
	AlertID     string    `json:"alert_id"`
	Action      string    `json:"action"`
	Detail      string    `json:"detail,omitempty"`
	PerformedBy string    `json:"performed_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAlertID builds the external alert identifier: ALERT-<timestamp>-<TYPE4>.
// The type tag is the first four characters of the alert type, uppercased.
func NewAlertID(alertType string, at time.Time) string {
	tag := strings.ToUpper(alertType)
	if len(tag) > 4 {
		tag = tag[:4]
	}
	return fmt.Sprintf("ALERT-%s-%s", at.UTC().Format("20060102150405"), tag)
}

// AlertStatistics summarizes the alert table for the dashboard.
type AlertStatistics struct {
	BySeverity         map[string]int `json:"by_severity"`
	ByStatus           map[string]int `json:"by_status"`
	CreatedLast24h     int            `json:"created_last_24h"`
	RemediationSuccess int            `json:"remediation_success"`
	RemediationFailure int            `json:"remediation_failure"`
}

// NewAlertStatistics initializes the maps so encoders never see nil.
func NewAlertStatistics() AlertStatistics {
	return AlertStatistics{
		BySeverity: make(map[string]int),
		ByStatus:   make(map[string]int),
	}
}
