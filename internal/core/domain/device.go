package domain

import "time"

// DeviceType is the coarse classification of a network device.
type DeviceType string

const (
	TypeIoT      DeviceType = "IoT"
	TypeComputer DeviceType = "Computer"
	TypeMobile   DeviceType = "Mobile"
	TypeNetwork  DeviceType = "Network"
	TypeServer   DeviceType = "Server"
	TypeVirtual  DeviceType = "Virtual"
	TypeUnknown  DeviceType = "Unknown"
)

// Common device categories within a type.
const (
	CategorySmartHome    = "Smart Home"
	CategoryCamera       = "Camera"
	CategoryThermostat   = "Thermostat"
	CategorySmartTV      = "Smart TV"
	CategoryPrinter      = "Printer"
	CategorySmartLight   = "Smart Light"
	CategoryTablet       = "Tablet"
	CategoryRouterSwitch = "Router-Switch"
	CategoryDesktop      = "Desktop-Laptop"
	CategorySmartphone   = "Smartphone"
	CategoryNAS          = "NAS"
	CategoryRaspberryPi  = "Raspberry Pi"
	CategoryVM           = "Virtual Machine"
	CategoryUnknown      = "Unknown"
)

// Device represents a host observed on the monitored network.
// Identity is MAC-first: two sightings with the same MAC are the same device
// even if the IP changed; an IP-only sighting matches an existing device by IP
// until ARP supplies the MAC.
type Device struct {
	MAC       string     `json:"mac"`
	IP        string     `json:"ip"`
	Hostname  string     `json:"hostname,omitempty"`
	Vendor    string     `json:"vendor,omitempty"`
	Type      DeviceType `json:"type"`
	Category  string     `json:"category"`
	FirstSeen time.Time  `json:"first_seen"`
	LastSeen  time.Time  `json:"last_seen"`

	IsTrusted bool   `json:"is_trusted"`
	Notes     string `json:"notes,omitempty"`
	OpenPorts string `json:"open_ports,omitempty"` // comma-separated, set by the scanner

	SecurityScore int    `json:"security_score"`
	SecurityGrade string `json:"security_grade,omitempty"`

	TotalPackets int64 `json:"total_packets"`
	TotalBytes   int64 `json:"total_bytes"`

	// Country of the last external counterpart this device talked to,
	// "Local" for private ranges. Enrichment only, never part of identity.
	GeoCountry string `json:"geo_country,omitempty"`
}

// Key returns the registry key for the device: MAC when known, IP otherwise.
func (d *Device) Key() string {
	if d.MAC != "" {
		return d.MAC
	}
	return d.IP
}

// DisplayName returns the friendliest available label for the device.
func (d *Device) DisplayName() string {
	switch {
	case d.Hostname != "":
		return d.Hostname
	case d.Vendor != "" && d.Vendor != "Unknown":
		return d.Vendor
	}
	return "unknown device"
}

// Stale reports whether the device has been silent longer than the cutoff.
func (d *Device) Stale(cutoff time.Duration) bool {
	return time.Since(d.LastSeen) > cutoff
}

// DeviceFilter narrows device listings in storage queries.
type DeviceFilter struct {
	Type       DeviceType
	Category   string
	Vendor     string
	MaxScore   int  // 0 means no score filter
	AtRisk     bool // shorthand for MaxScore = AtRiskThreshold
	SeenAfter  time.Time
	SeenBefore time.Time
}

// AtRiskThreshold is the score below which a device is reported as at-risk.
const AtRiskThreshold = 60

// InitialScore is the neutral security score a device carries until the
// first scoring pass runs.
const InitialScore = 50
