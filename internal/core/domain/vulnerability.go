package domain

import (
	"errors"
	"time"
)

// Severity levels for vulnerabilities and alerts.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

var ErrInvalidSeverity = errors.New("invalid severity level")

// IsValid checks the severity against the known set.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Weight returns the score penalty associated with the severity.
// Used by the device scorer: only the worst unresolved finding counts.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 40
	case SeverityHigh:
		return 25
	case SeverityMedium:
		return 15
	case SeverityLow:
		return 5
	}
	return 0
}

// Rank orders severities for sorting (CRITICAL first).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// Vulnerability type identifiers emitted by the IoT scanner.
const (
	VulnTelnetEnabled       = "telnet_enabled"
	VulnRiskyOpenPort       = "risky_open_port"
	VulnDefaultCredentials  = "default_credentials"
	VulnUnencryptedComms    = "unencrypted_communication"
	VulnSuspiciousComms     = "suspicious_communication"
	VulnCameraPrivacy       = "camera_privacy_risk"
	VulnSmartTVDataHarvest  = "smart_tv_data_collection"
)

// Vulnerability is a security finding against a specific device.
type Vulnerability struct {
	ID               uint      `json:"id"`
	DeviceIP         string    `json:"device_ip"`
	DeviceMAC        string    `json:"device_mac,omitempty"`
	Type             string    `json:"vulnerability_type"`
	Severity         Severity  `json:"severity"`
	Description      string    `json:"description"`
	Recommendation   string    `json:"recommendation,omitempty"`
	DetectedAt       time.Time `json:"detected_at"`
	Resolved         bool      `json:"resolved"`
	ThreatIndicators string    `json:"threat_indicators,omitempty"` // JSON detail blob
	AutoFixed        bool      `json:"auto_fixed"`
	RemediationNote  string    `json:"remediation_applied,omitempty"`
}
