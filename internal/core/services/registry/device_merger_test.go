package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func TestMergeNeverBlanksKnownFields(t *testing.T) {
	merger := NewMerger()
	existing := domain.Device{
		MAC:      "AA:BB:CC:DD:EE:FF",
		IP:       "192.168.1.10",
		Hostname: "nest-thermostat",
		Vendor:   "Nest Labs",
		Type:     domain.TypeIoT,
		Category: domain.CategoryThermostat,
	}

	// A sparse cycle: reverse DNS failed, vendor lookup missed.
	merger.Merge(&existing, domain.Device{
		IP:     "192.168.1.10",
		Vendor: "Unknown",
		Type:   domain.TypeUnknown,
	})

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", existing.MAC)
	assert.Equal(t, "nest-thermostat", existing.Hostname)
	assert.Equal(t, "Nest Labs", existing.Vendor)
	assert.Equal(t, domain.TypeIoT, existing.Type)
	assert.Equal(t, domain.CategoryThermostat, existing.Category)
}

func TestMergeRefreshesObservedFields(t *testing.T) {
	merger := NewMerger()
	existing := domain.Device{
		MAC:      "AA:BB:CC:DD:EE:FF",
		IP:       "192.168.1.10",
		Type:     domain.TypeUnknown,
		Category: domain.CategoryUnknown,
	}

	merger.Merge(&existing, domain.Device{
		IP:       "192.168.1.23",
		Hostname: "hue-bridge",
		Vendor:   "Philips Lighting",
		Type:     domain.TypeIoT,
		Category: domain.CategorySmartLight,
	})

	assert.Equal(t, "192.168.1.23", existing.IP)
	assert.Equal(t, "hue-bridge", existing.Hostname)
	assert.Equal(t, "Philips Lighting", existing.Vendor)
	assert.Equal(t, domain.TypeIoT, existing.Type)
	assert.Equal(t, domain.CategorySmartLight, existing.Category)
}

func TestMergeAccumulatesTraffic(t *testing.T) {
	merger := NewMerger()
	existing := domain.Device{MAC: "AA:BB:CC:DD:EE:FF", TotalPackets: 100, TotalBytes: 4096}

	merger.Merge(&existing, domain.Device{TotalPackets: 50, TotalBytes: 1024})

	assert.Equal(t, int64(150), existing.TotalPackets)
	assert.Equal(t, int64(5120), existing.TotalBytes)
}

func TestMergeTimestamps(t *testing.T) {
	merger := NewMerger()
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	last := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := domain.Device{MAC: "AA:BB:CC:DD:EE:FF", FirstSeen: first, LastSeen: last}

	// An observation with an older LastSeen must not rewind the clock.
	merger.Merge(&existing, domain.Device{
		FirstSeen: last,
		LastSeen:  last.Add(-time.Hour),
	})
	assert.True(t, existing.FirstSeen.Equal(first))
	assert.True(t, existing.LastSeen.Equal(last))

	merger.Merge(&existing, domain.Device{LastSeen: last.Add(time.Hour)})
	assert.True(t, existing.LastSeen.Equal(last.Add(time.Hour)))
}

func TestMergeLeavesOperatorFieldsAlone(t *testing.T) {
	merger := NewMerger()
	existing := domain.Device{
		MAC:           "AA:BB:CC:DD:EE:FF",
		IsTrusted:     true,
		Notes:         "kitchen display",
		SecurityScore: 85,
		SecurityGrade: "B",
	}

	merger.Merge(&existing, domain.Device{IP: "192.168.1.60", SecurityScore: 10})

	assert.True(t, existing.IsTrusted)
	assert.Equal(t, "kitchen display", existing.Notes)
	assert.Equal(t, 85, existing.SecurityScore)
	assert.Equal(t, "B", existing.SecurityGrade)
}

func TestMergeScannerAndGeoFields(t *testing.T) {
	merger := NewMerger()
	existing := domain.Device{MAC: "AA:BB:CC:DD:EE:FF", OpenPorts: "80,443", GeoCountry: "US"}

	merger.Merge(&existing, domain.Device{OpenPorts: "23,80", GeoCountry: "DE"})
	assert.Equal(t, "23,80", existing.OpenPorts)
	assert.Equal(t, "DE", existing.GeoCountry)

	// A cycle with no scan and no external traffic keeps both.
	merger.Merge(&existing, domain.Device{})
	assert.Equal(t, "23,80", existing.OpenPorts)
	assert.Equal(t, "DE", existing.GeoCountry)
}
