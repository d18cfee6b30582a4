package domain

import (
	"time"
)

// SystemStats is the aggregated dashboard snapshot.
type SystemStats struct {
	DeviceCount      int `json:"device_count"`
	ActiveAlertCount int `json:"active_alert_count"`
	OpenVulnCount    int `json:"open_vuln_count"`

	// Distributions
	DevicesByType     map[string]int `json:"devices_by_type"`
	DevicesByCategory map[string]int `json:"devices_by_category"`
	AlertsBySeverity  map[string]int `json:"alerts_by_severity"`

	// Latest analysis verdict, empty until the first cycle completes.
	ThreatLevel        string `json:"threat_level,omitempty"`
	NetworkHealthScore int    `json:"network_health_score,omitempty"`

	// Ingest counters since start.
	RowsIngested map[string]int64 `json:"rows_ingested"`

	LastUpdated time.Time `json:"updated_at"`
}

// NewSystemStats initializes a stats object with empty maps to prevent nil
// access in encoders.
func NewSystemStats() SystemStats {
	return SystemStats{
		DevicesByType:     make(map[string]int),
		DevicesByCategory: make(map[string]int),
		AlertsBySeverity:  make(map[string]int),
		RowsIngested:      make(map[string]int64),
	}
}

// CollectorStatus reports the health of one supervised capture tool.
type CollectorStatus struct {
	Tool         string    `json:"tool"`
	Running      bool      `json:"running"`
	PID          int       `json:"pid,omitempty"`
	Restarts     int       `json:"restarts"`
	LastError    string    `json:"last_error,omitempty"`
	LastRowsAt   time.Time `json:"last_rows_at,omitempty"`
	RowsIngested int64     `json:"rows_ingested"`
}

// SystemStatus is the operator-facing health report.
type SystemStatus struct {
	Collectors   []CollectorStatus `json:"collectors"`
	DBSizeBytes  int64             `json:"db_size_bytes"`
	TableCount   int               `json:"table_count"`
	HostCPUUsage float64           `json:"host_cpu_percent"`
	HostMemUsage float64           `json:"host_mem_percent"`
	UptimeSec    int64             `json:"uptime_seconds"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// FlushResult reports what a flush-all-data operation removed.
type FlushResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	TablesDropped int      `json:"tables_dropped"`
	TablesCleared int      `json:"tables_cleared"`
	DroppedTables []string `json:"dropped_tables_list"`
	ClearedTables []string `json:"cleared_tables"`
}
