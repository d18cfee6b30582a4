package storage

import (
	"encoding/json"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// listToJSON renders a string slice as a JSON array column value. Empty
// slices store as "[]" so readers never parse an empty string.
func listToJSON(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func listFromJSON(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}

// toDeviceModel converts a domain entity to its database model.
func toDeviceModel(d domain.Device) DeviceModel {
	return DeviceModel{
		MAC:           d.MAC,
		IP:            d.IP,
		Hostname:      d.Hostname,
		Vendor:        d.Vendor,
		DeviceType:    string(d.Type),
		Category:      d.Category,
		FirstSeen:     d.FirstSeen,
		LastSeen:      d.LastSeen,
		IsTrusted:     d.IsTrusted,
		Notes:         d.Notes,
		OpenPorts:     d.OpenPorts,
		SecurityScore: d.SecurityScore,
		SecurityGrade: d.SecurityGrade,
		TotalPackets:  d.TotalPackets,
		TotalBytes:    d.TotalBytes,
		GeoCountry:    d.GeoCountry,
	}
}

// toDeviceDomain converts a database model to a domain entity.
func toDeviceDomain(m DeviceModel) *domain.Device {
	return &domain.Device{
		MAC:           m.MAC,
		IP:            m.IP,
		Hostname:      m.Hostname,
		Vendor:        m.Vendor,
		Type:          domain.DeviceType(m.DeviceType),
		Category:      m.Category,
		FirstSeen:     m.FirstSeen,
		LastSeen:      m.LastSeen,
		IsTrusted:     m.IsTrusted,
		Notes:         m.Notes,
		OpenPorts:     m.OpenPorts,
		SecurityScore: m.SecurityScore,
		SecurityGrade: m.SecurityGrade,
		TotalPackets:  m.TotalPackets,
		TotalBytes:    m.TotalBytes,
		GeoCountry:    m.GeoCountry,
	}
}

func toVulnModel(v domain.Vulnerability) VulnerabilityModel {
	return VulnerabilityModel{
		ID:               v.ID,
		DeviceIP:         v.DeviceIP,
		DeviceMAC:        v.DeviceMAC,
		VulnType:         v.Type,
		Severity:         string(v.Severity),
		Description:      v.Description,
		Recommendation:   v.Recommendation,
		DetectedAt:       v.DetectedAt,
		Resolved:         v.Resolved,
		ThreatIndicators: v.ThreatIndicators,
		AutoFixed:        v.AutoFixed,
		RemediationNote:  v.RemediationNote,
	}
}

func toVulnDomain(m VulnerabilityModel) domain.Vulnerability {
	return domain.Vulnerability{
		ID:               m.ID,
		DeviceIP:         m.DeviceIP,
		DeviceMAC:        m.DeviceMAC,
		Type:             m.VulnType,
		Severity:         domain.Severity(m.Severity),
		Description:      m.Description,
		Recommendation:   m.Recommendation,
		DetectedAt:       m.DetectedAt,
		Resolved:         m.Resolved,
		ThreatIndicators: m.ThreatIndicators,
		AutoFixed:        m.AutoFixed,
		RemediationNote:  m.RemediationNote,
	}
}

func toAlertModel(a domain.SecurityAlert) AlertModel {
	return AlertModel{
		ID:               a.ID,
		AlertID:          a.AlertID,
		AlertType:        a.AlertType,
		Severity:         string(a.Severity),
		Title:            a.Title,
		Description:      a.Description,
		SourceIP:         a.SourceIP,
		TargetIP:         a.TargetIP,
		Status:           string(a.Status),
		AffectedDevices:  listToJSON(a.AffectedDevices),
		ThreatIndicators: listToJSON(a.ThreatIndicators),
		RemediationSteps: listToJSON(a.RemediationSteps),

		AutoRemediationAvailable: a.AutoRemediationAvailable,
		RemediationCommand:       a.RemediationCommand,

		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		LastSeen:        a.LastSeen,
		RecurrenceCount: a.RecurrenceCount,
		ResolvedBy:      a.ResolvedBy,
		ResolvedAt:      a.ResolvedAt,
		FalsePositive:   a.FalsePositive,
	}
}

func toAlertDomain(m AlertModel) domain.SecurityAlert {
	return domain.SecurityAlert{
		ID:               m.ID,
		AlertID:          m.AlertID,
		AlertType:        m.AlertType,
		Severity:         domain.Severity(m.Severity),
		Title:            m.Title,
		Description:      m.Description,
		SourceIP:         m.SourceIP,
		TargetIP:         m.TargetIP,
		Status:           domain.AlertStatus(m.Status),
		AffectedDevices:  listFromJSON(m.AffectedDevices),
		ThreatIndicators: listFromJSON(m.ThreatIndicators),
		RemediationSteps: listFromJSON(m.RemediationSteps),

		AutoRemediationAvailable: m.AutoRemediationAvailable,
		RemediationCommand:       m.RemediationCommand,

		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		LastSeen:        m.LastSeen,
		RecurrenceCount: m.RecurrenceCount,
		ResolvedBy:      m.ResolvedBy,
		ResolvedAt:      m.ResolvedAt,
		FalsePositive:   m.FalsePositive,
	}
}

func toRuleModel(r domain.AlertRule) AlertRuleModel {
	return AlertRuleModel{
		ID:                 r.ID,
		RuleName:           r.RuleName,
		RuleType:           string(r.RuleType),
		ThresholdValue:     r.ThresholdValue,
		TimeWindowSeconds:  r.TimeWindowSeconds,
		Severity:           string(r.Severity),
		Enabled:            r.Enabled,
		AutoRemediate:      r.AutoRemediate,
		RemediationCommand: r.RemediationCommand,
	}
}

func toRuleDomain(m AlertRuleModel) domain.AlertRule {
	return domain.AlertRule{
		ID:                 m.ID,
		RuleName:           m.RuleName,
		RuleType:           domain.RuleType(m.RuleType),
		ThresholdValue:     m.ThresholdValue,
		TimeWindowSeconds:  m.TimeWindowSeconds,
		Severity:           domain.Severity(m.Severity),
		Enabled:            m.Enabled,
		AutoRemediate:      m.AutoRemediate,
		RemediationCommand: m.RemediationCommand,
	}
}

func toAnalysisModel(a domain.Analysis) AnalysisModel {
	return AnalysisModel{
		ID:                 a.ID,
		AnalyzedAt:         a.AnalyzedAt,
		ThreatLevel:        a.ThreatLevel,
		NetworkHealthScore: a.NetworkHealthScore,
		Summary:            a.Summary,
		ThreatsDetected:    a.ThreatsDetected,
		NetworkInsights:    a.NetworkInsights,
		DeviceAnalysis:     a.DeviceAnalysis,
		HTTPAnalysis:       a.HTTPAnalysis,
		Recommendations:    a.Recommendations,
		RawResponse:        a.RawResponse,
		ModelUsed:          a.ModelUsed,
	}
}

func toAnalysisDomain(m AnalysisModel) domain.Analysis {
	return domain.Analysis{
		ID:                 m.ID,
		AnalyzedAt:         m.AnalyzedAt,
		ThreatLevel:        m.ThreatLevel,
		NetworkHealthScore: m.NetworkHealthScore,
		Summary:            m.Summary,
		ThreatsDetected:    m.ThreatsDetected,
		NetworkInsights:    m.NetworkInsights,
		DeviceAnalysis:     m.DeviceAnalysis,
		HTTPAnalysis:       m.HTTPAnalysis,
		Recommendations:    m.Recommendations,
		RawResponse:        m.RawResponse,
		ModelUsed:          m.ModelUsed,
	}
}
