package domain

import "time"

// ReportData aggregates everything the PDF security report renders.
type ReportData struct {
	GeneratedAt time.Time
	GeneratedBy string // username
	Stats       ReportStats
	Devices     []Device
	Alerts      []SecurityAlert
	Vulns       []Vulnerability
	Latest      *Analysis // most recent analysis, nil if none yet
}

// ReportStats holds the summary figures on the report's first page.
type ReportStats struct {
	TotalDevices   int
	IoTCount       int
	UnknownCount   int
	ActiveAlerts   int
	CriticalAlerts int
	OpenVulns      int
	AverageScore   float64
	AtRiskDevices  int

	DevicesByType map[string]int
	TopVendors    []VendorStat
}

// VendorStat pairs a vendor with its device count.
type VendorStat struct {
	Name  string
	Count int
}
