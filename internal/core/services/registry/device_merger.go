package registry

import (
	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// Merger folds a fresh observation into an existing device record.
// Observed fields only fill in or refresh; an empty observation never
// blanks out what an earlier cycle learned.
type Merger struct{}

// NewMerger creates a Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge updates existing with the fields obs carries.
func (m *Merger) Merge(existing *domain.Device, obs domain.Device) {
	if obs.LastSeen.After(existing.LastSeen) {
		existing.LastSeen = obs.LastSeen
	}
	if !obs.FirstSeen.IsZero() && (existing.FirstSeen.IsZero() || obs.FirstSeen.Before(existing.FirstSeen)) {
		existing.FirstSeen = obs.FirstSeen
	}

	if obs.MAC != "" {
		existing.MAC = obs.MAC
	}
	if obs.IP != "" {
		existing.IP = obs.IP
	}
	if obs.Hostname != "" {
		existing.Hostname = obs.Hostname
	}
	if obs.Vendor != "" && obs.Vendor != "Unknown" {
		existing.Vendor = obs.Vendor
	}

	// Classification upgrades only; a cycle that learned nothing keeps
	// the previous type.
	if obs.Type != "" && obs.Type != domain.TypeUnknown {
		existing.Type = obs.Type
		if obs.Category != "" && obs.Category != domain.CategoryUnknown {
			existing.Category = obs.Category
		}
	}
	if existing.Type == "" {
		existing.Type = domain.TypeUnknown
	}
	if existing.Category == "" {
		existing.Category = domain.CategoryUnknown
	}

	existing.TotalPackets += obs.TotalPackets
	existing.TotalBytes += obs.TotalBytes

	if obs.GeoCountry != "" {
		existing.GeoCountry = obs.GeoCountry
	}
	if obs.OpenPorts != "" {
		existing.OpenPorts = obs.OpenPorts
	}
	// Trust flags, notes, and scores belong to the operator and the
	// scorer; observations never touch them.
}
