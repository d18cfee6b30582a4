package ports

import (
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// DeviceRegistry manages the in-memory state of discovered devices.
type DeviceRegistry interface {
	// ProcessDevice merges an observation into the registry.
	// Returns the merged device and whether it was newly discovered.
	ProcessDevice(device domain.Device) (domain.Device, bool)

	// GetDevice returns a device by MAC.
	GetDevice(mac string) (domain.Device, bool)

	// GetByIP returns a device by its current IP.
	GetByIP(ip string) (domain.Device, bool)

	// GetAllDevices returns all known devices.
	GetAllDevices() []domain.Device

	// StaleDevices returns devices silent since the cutoff.
	StaleDevices(cutoff time.Time) []domain.Device

	// GetActiveCount returns the number of devices currently tracked.
	GetActiveCount() int

	// SetScore writes a computed score and grade onto the device stored
	// under key. Reports whether the device exists. Discovery merges never
	// touch these fields; this is the scorer's only write path.
	SetScore(key string, score int, grade string) bool

	// Clear wipes all in-memory state.
	Clear()
}
