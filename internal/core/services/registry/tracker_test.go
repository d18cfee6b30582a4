package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	devices []domain.Device
}

func (s *recordingSink) Persist(d domain.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, d)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

type recordingNotifier struct {
	mu      sync.Mutex
	devices []domain.Device
}

func (n *recordingNotifier) NotifyDevice(d domain.Device) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.devices = append(n.devices, d)
}

func (n *recordingNotifier) NotifyAlert(domain.SecurityAlert)       {}
func (n *recordingNotifier) NotifyVulnerability(domain.Vulnerability) {}
func (n *recordingNotifier) NotifyAnalysis(domain.Analysis)         {}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.devices)
}

const trackerARPSample = `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.10     0x1         0x2         aa:bb:cc:dd:ee:01     *        eth0
192.168.1.11     0x1         0x2         aa:bb:cc:dd:ee:02     *        eth0
`

func newTestTracker(t *testing.T, queries *stubQueries) (*Tracker, *Registry, *recordingSink, *recordingNotifier) {
	t.Helper()

	arp := NewARPTable(writeARPFixture(t, trackerARPSample))
	enricher := NewEnricher(
		&stubVendors{byOUI: map[string]string{"AA:BB:CC": "Espressif Inc"}},
		&stubHostResolver{names: map[string][]string{"192.168.1.10": {"smart-plug."}}},
		&stubGeo{},
		queries,
	)

	reg := NewRegistry()
	sink := &recordingSink{}
	notifier := &recordingNotifier{}
	tracker := NewTracker(reg, queries, arp, enricher, sink, notifier, 30*time.Second)
	return tracker, reg, sink, notifier
}

func TestCycleUnionsARPAndTrafficIPs(t *testing.T) {
	queries := &stubQueries{
		// 192.168.1.11 overlaps the ARP table, 192.168.1.30 is traffic-only.
		localIPs: []string{"192.168.1.11", "192.168.1.30"},
		traffic: map[string]domain.TrafficSummary{
			"192.168.1.30": {Packets: 42, Bytes: 2048},
		},
	}
	tracker, reg, sink, notifier := newTestTracker(t, queries)

	n, err := tracker.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, reg.GetActiveCount())
	assert.Equal(t, 3, sink.count())
	assert.Equal(t, 3, notifier.count(), "every first sighting is announced")

	plug, ok := reg.GetByIP("192.168.1.10")
	require.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", plug.MAC, "ARP MAC is uppercased")
	assert.Equal(t, "smart-plug", plug.Hostname)
	assert.Equal(t, "Espressif Inc", plug.Vendor)
	assert.Equal(t, domain.TypeIoT, plug.Type)
	assert.Equal(t, domain.CategorySmartHome, plug.Category)

	quiet, ok := reg.GetByIP("192.168.1.30")
	require.True(t, ok)
	assert.Empty(t, quiet.MAC, "traffic-only hosts have no ARP entry")
	assert.Equal(t, int64(42), quiet.TotalPackets)
	assert.Equal(t, int64(2048), quiet.TotalBytes)
}

func TestCycleSecondPassAccumulatesWithoutReannouncing(t *testing.T) {
	queries := &stubQueries{
		localIPs: []string{"192.168.1.30"},
		traffic: map[string]domain.TrafficSummary{
			"192.168.1.30": {Packets: 10, Bytes: 100},
		},
	}
	tracker, reg, sink, notifier := newTestTracker(t, queries)

	_, err := tracker.Cycle(context.Background())
	require.NoError(t, err)
	_, err = tracker.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, reg.GetActiveCount())
	assert.Equal(t, 6, sink.count(), "every sighting is persisted")
	assert.Equal(t, 3, notifier.count(), "known devices are not re-announced")

	quiet, ok := reg.GetByIP("192.168.1.30")
	require.True(t, ok)
	assert.Equal(t, int64(20), quiet.TotalPackets, "traffic windows accumulate")
	assert.Equal(t, int64(200), quiet.TotalBytes)
}

func TestCycleTrafficQueryFailureAborts(t *testing.T) {
	queries := &stubQueries{localIPsErr: errors.New("db locked")}
	tracker, reg, _, notifier := newTestTracker(t, queries)

	n, err := tracker.Cycle(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, reg.GetActiveCount(), "nothing is processed on a failed cycle")
	assert.Zero(t, notifier.count())
}

func TestCycleMissingARPTableStillProcessesTraffic(t *testing.T) {
	queries := &stubQueries{localIPs: []string{"192.168.1.40"}}
	enricher := NewEnricher(&stubVendors{}, nil, nil, queries)
	reg := NewRegistry()
	tracker := NewTracker(reg, queries, NewARPTable("/nonexistent/arp"), enricher, nil, nil, 30*time.Second)

	n, err := tracker.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := reg.GetByIP("192.168.1.40")
	assert.True(t, ok)
}

func TestCycleCompleteHook(t *testing.T) {
	queries := &stubQueries{}
	tracker, _, _, _ := newTestTracker(t, queries)

	fired := 0
	tracker.OnCycleComplete(func(ctx context.Context) { fired++ })

	_, err := tracker.Cycle(context.Background())
	require.NoError(t, err)
	_, err = tracker.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fired)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	queries := &stubQueries{}
	tracker, reg, _, _ := newTestTracker(t, queries)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	// The first cycle runs immediately; give it a moment, then stop.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("tracker did not stop after cancel")
	}
	assert.Equal(t, 2, reg.GetActiveCount())
}
