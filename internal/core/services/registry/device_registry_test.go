package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)
	assert.Equal(t, numShards, len(reg.shards))
	assert.Equal(t, 0, reg.GetActiveCount())
}

func TestProcessDeviceNew(t *testing.T) {
	reg := NewRegistry()

	processed, isNew := reg.ProcessDevice(domain.Device{
		MAC:    "AA:BB:CC:DD:EE:FF",
		IP:     "192.168.1.50",
		Vendor: "Apple",
	})

	assert.True(t, isNew)
	assert.Equal(t, domain.InitialScore, processed.SecurityScore)
	assert.Equal(t, domain.TypeUnknown, processed.Type)
	assert.Equal(t, domain.CategoryUnknown, processed.Category)
	assert.False(t, processed.FirstSeen.IsZero())
	assert.False(t, processed.LastSeen.IsZero())

	stored, found := reg.GetDevice("AA:BB:CC:DD:EE:FF")
	require.True(t, found)
	assert.Equal(t, "192.168.1.50", stored.IP)
	assert.Equal(t, 1, reg.GetActiveCount())
}

func TestProcessDeviceMerge(t *testing.T) {
	reg := NewRegistry()
	mac := "11:22:33:44:55:66"

	t1 := time.Now().Add(-time.Minute)
	reg.ProcessDevice(domain.Device{MAC: mac, IP: "192.168.1.20", LastSeen: t1, TotalPackets: 10})

	t2 := time.Now()
	merged, isNew := reg.ProcessDevice(domain.Device{
		MAC:          mac,
		IP:           "192.168.1.21",
		LastSeen:     t2,
		Hostname:     "living-room-tv",
		TotalPackets: 5,
	})

	assert.False(t, isNew)
	assert.Equal(t, "192.168.1.21", merged.IP, "DHCP renewals update the address")
	assert.Equal(t, "living-room-tv", merged.Hostname)
	assert.Equal(t, int64(15), merged.TotalPackets)
	assert.True(t, merged.LastSeen.Equal(t2))
	assert.True(t, merged.FirstSeen.Equal(t1), "first sighting survives merges")
	assert.Equal(t, 1, reg.GetActiveCount())
}

func TestProcessDeviceIPOnlyThenMAC(t *testing.T) {
	reg := NewRegistry()

	// Traffic sighting before ARP has a neighbour entry.
	_, isNew := reg.ProcessDevice(domain.Device{IP: "192.168.1.77"})
	require.True(t, isNew)

	byIP, found := reg.GetByIP("192.168.1.77")
	require.True(t, found)
	assert.Empty(t, byIP.MAC)

	// ARP supplies the MAC: same device, re-keyed to its MAC slot.
	merged, isNew := reg.ProcessDevice(domain.Device{IP: "192.168.1.77", MAC: "AA:AA:AA:00:00:01"})
	assert.False(t, isNew)
	assert.Equal(t, "AA:AA:AA:00:00:01", merged.MAC)

	_, found = reg.GetDevice("AA:AA:AA:00:00:01")
	assert.True(t, found)
	assert.Equal(t, 1, reg.GetActiveCount(), "the IP slot must be gone after re-keying")
}

func TestProcessDeviceIPReuseDifferentMAC(t *testing.T) {
	reg := NewRegistry()

	reg.ProcessDevice(domain.Device{IP: "192.168.1.30", MAC: "AA:AA:AA:00:00:01"})
	// DHCP hands the address to another host: distinct device.
	_, isNew := reg.ProcessDevice(domain.Device{IP: "192.168.1.30", MAC: "BB:BB:BB:00:00:02"})

	assert.True(t, isNew)
	assert.Equal(t, 2, reg.GetActiveCount())
}

func TestProcessDeviceConcurrent(t *testing.T) {
	reg := NewRegistry()
	mac := "00:11:22:33:44:55"

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.ProcessDevice(domain.Device{MAC: mac, IP: "192.168.1.9", TotalPackets: 1})
		}()
	}
	wg.Wait()

	stored, found := reg.GetDevice(mac)
	require.True(t, found)
	assert.Equal(t, int64(100), stored.TotalPackets, "no update may be lost under concurrency")
	assert.Equal(t, 1, reg.GetActiveCount())
}

func TestGetAllDevicesOrdering(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	reg.ProcessDevice(domain.Device{MAC: "AA:AA:AA:00:00:01", LastSeen: now.Add(-2 * time.Hour)})
	reg.ProcessDevice(domain.Device{MAC: "BB:BB:BB:00:00:02", LastSeen: now})
	reg.ProcessDevice(domain.Device{MAC: "CC:CC:CC:00:00:03", LastSeen: now.Add(-time.Hour)})

	all := reg.GetAllDevices()
	require.Len(t, all, 3)
	assert.Equal(t, "BB:BB:BB:00:00:02", all[0].MAC)
	assert.Equal(t, "CC:CC:CC:00:00:03", all[1].MAC)
	assert.Equal(t, "AA:AA:AA:00:00:01", all[2].MAC)
}

func TestStaleDevices(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	reg.ProcessDevice(domain.Device{MAC: "AA:AA:AA:00:00:01", LastSeen: now.Add(-2 * time.Hour)})
	reg.ProcessDevice(domain.Device{MAC: "BB:BB:BB:00:00:02", LastSeen: now})

	stale := reg.StaleDevices(now.Add(-time.Hour))
	require.Len(t, stale, 1)
	assert.Equal(t, "AA:AA:AA:00:00:01", stale[0].MAC)
}

func TestClear(t *testing.T) {
	reg := NewRegistry()
	reg.ProcessDevice(domain.Device{MAC: "AA:AA:AA:00:00:01"})
	reg.ProcessDevice(domain.Device{IP: "192.168.1.5"})

	reg.Clear()

	assert.Equal(t, 0, reg.GetActiveCount())
	_, found := reg.GetDevice("AA:AA:AA:00:00:01")
	assert.False(t, found)
}

func TestLoadSeedsWithoutRediscovery(t *testing.T) {
	reg := NewRegistry()
	reg.Load([]domain.Device{
		{MAC: "AA:AA:AA:00:00:01", IP: "192.168.1.40", Vendor: "Sonos", TotalPackets: 500},
		{IP: "192.168.1.41"},
		{}, // keyless records from a corrupt row are skipped
	})

	assert.Equal(t, 2, reg.GetActiveCount())

	// The next sighting merges instead of reporting a new device.
	merged, isNew := reg.ProcessDevice(domain.Device{MAC: "AA:AA:AA:00:00:01", TotalPackets: 10})
	assert.False(t, isNew)
	assert.Equal(t, int64(510), merged.TotalPackets)
	assert.Equal(t, "Sonos", merged.Vendor)
}
