package domain

import (
	"encoding/json"
	"time"
)

// ThreatLevel values reported by the analysis pipeline.
const (
	ThreatLow      = "LOW"
	ThreatMedium   = "MEDIUM"
	ThreatHigh     = "HIGH"
	ThreatCritical = "CRITICAL"
)

// AnalysisReport is the structured verdict returned by a provider. The JSON
// shape is part of the prompt contract; a response that does not unmarshal
// into this counts as a provider failure.
type AnalysisReport struct {
	ThreatLevel        string                 `json:"threat_level"`
	NetworkHealthScore int                    `json:"network_health_score"`
	Summary            string                 `json:"summary"`
	ThreatsDetected    []DetectedThreat       `json:"threats_detected"`
	NetworkInsights    NetworkInsights        `json:"network_insights"`
	DeviceAnalysis     DeviceAnalysis         `json:"device_analysis"`
	HTTPAnalysis       map[string]interface{} `json:"http_analysis,omitempty"`
	Recommendations    []string               `json:"recommendations"`
}

// DetectedThreat is one threat called out by the analyst model.
type DetectedThreat struct {
	Severity          string   `json:"severity"`
	Category          string   `json:"category"`
	Description       string   `json:"description"`
	AffectedIPs       []string `json:"affected_ips"`
	RecommendedAction string   `json:"recommended_action"`
	ToolSource        string   `json:"tool_source"`
}

// NetworkInsights summarizes traffic shape observations.
type NetworkInsights struct {
	TotalTrafficVolume  string   `json:"total_traffic_volume"`
	MostActiveProtocols []string `json:"most_active_protocols"`
	SuspiciousConns     string   `json:"suspicious_connections"`
	UnusualPatterns     string   `json:"unusual_patterns"`
	BandwidthAnomalies  string   `json:"bandwidth_anomalies"`
}

// DeviceAnalysis summarizes the device population as seen by the model.
type DeviceAnalysis struct {
	TotalDevices      int            `json:"total_devices"`
	OperatingSystems  map[string]int `json:"operating_systems"`
	SuspiciousDevices []string       `json:"suspicious_devices"`
}

// Analysis is the persisted record of one successful analysis cycle.
type Analysis struct {
	ID                 uint      `json:"id"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
	ThreatLevel        string    `json:"threat_level"`
	NetworkHealthScore int       `json:"network_health_score"`
	Summary            string    `json:"summary"`
	ThreatsDetected    string    `json:"threats_detected"`  // JSON
	NetworkInsights    string    `json:"network_insights"`  // JSON
	DeviceAnalysis     string    `json:"device_analysis"`   // JSON
	HTTPAnalysis       string    `json:"http_analysis"`     // JSON
	Recommendations    string    `json:"recommendations"`   // JSON
	RawResponse        string    `json:"-"`
	ModelUsed          string    `json:"model_used"`
}

// NewAnalysis flattens a report into its storage record, serializing the
// nested sections. Marshal errors cannot occur on these types.
func NewAnalysis(report *AnalysisReport, modelUsed, raw string, at time.Time) Analysis {
	threats, _ := json.Marshal(report.ThreatsDetected)
	insights, _ := json.Marshal(report.NetworkInsights)
	devices, _ := json.Marshal(report.DeviceAnalysis)
	httpA, _ := json.Marshal(report.HTTPAnalysis)
	recs, _ := json.Marshal(report.Recommendations)

	return Analysis{
		AnalyzedAt:         at,
		ThreatLevel:        report.ThreatLevel,
		NetworkHealthScore: report.NetworkHealthScore,
		Summary:            report.Summary,
		ThreatsDetected:    string(threats),
		NetworkInsights:    string(insights),
		DeviceAnalysis:     string(devices),
		HTTPAnalysis:       string(httpA),
		Recommendations:    string(recs),
		RawResponse:        raw,
		ModelUsed:          modelUsed,
	}
}

// AnalysisCycle records the outcome of one aggregator cycle, successful or
// not. Failed cycles keep their error here; successful ones also produce an
// Analysis row.
type AnalysisCycle struct {
	ID           uint      `json:"id"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
	ModelUsed    string    `json:"model_used,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ProcessingMS int64     `json:"processing_ms"`
}
