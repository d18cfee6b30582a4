package domain

import "time"

// Activity classifications assigned by the behavioral analyzer.
const (
	ActivityNormal     = "normal"
	ActivitySuspicious = "suspicious"
	ActivityAnomalous  = "anomalous"
)

// IoTCommunication is one observed conversation between an IoT device and a
// remote endpoint, risk-rated 0-4.
type IoTCommunication struct {
	ID           uint      `json:"id"`
	DeviceIP     string    `json:"device_ip"`
	RemoteIP     string    `json:"remote_ip"`
	RemotePort   string    `json:"remote_port"`
	Protocol     string    `json:"protocol"`
	Bytes        int64     `json:"bytes"`
	Packets      int64     `json:"packets"`
	IsExternal   bool      `json:"is_external"`
	RiskLevel    int       `json:"risk_level"`
	IsSuspicious bool      `json:"is_suspicious"`
	ObservedAt   time.Time `json:"observed_at"`
}

// IoTBehavior is one behavioral sample for an IoT device over the analysis
// window.
type IoTBehavior struct {
	ID               uint      `json:"id"`
	DeviceIP         string    `json:"device_ip"`
	ActivityType     string    `json:"activity_type"`
	ActivityScore    int       `json:"activity_score"` // 0-100, higher is worse
	PacketCount      int64     `json:"packet_count"`
	UniqueDests      int       `json:"unique_destinations"`
	UniquePorts      int       `json:"unique_ports"`
	BytesTransferred int64     `json:"bytes_transferred"`
	DataPoints       string    `json:"data_points,omitempty"` // JSON detail blob
	RecordedAt       time.Time `json:"recorded_at"`
}

// IoTScore is the rolling per-device security score sheet: three sub-scores
// and their mean, with a bounded history ring.
type IoTScore struct {
	ID            uint      `json:"id"`
	DeviceIP      string    `json:"device_ip"`
	Overall       int       `json:"overall_score"`
	Vulnerability int       `json:"vulnerability_score"`
	Communication int       `json:"communication_score"`
	Behavioral    int       `json:"behavioral_score"`
	ScoreHistory  string    `json:"score_history,omitempty"` // JSON, most recent 24 samples
	UpdatedAt     time.Time `json:"updated_at"`
}

// ScoreHistoryLimit bounds the retained per-device score samples.
const ScoreHistoryLimit = 24
