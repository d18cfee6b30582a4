package mock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-lab/netguard/internal/adapters/capture"
	"github.com/jarvis-lab/netguard/internal/adapters/storage"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/services/registry"
)

func newTestGenerator(t *testing.T) (*Generator, *storage.SQLiteAdapter, string) {
	t.Helper()
	dir := t.TempDir()
	adapter, err := storage.NewSQLiteAdapter(filepath.Join(dir, "netguard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	arpPath := filepath.Join(dir, "mock_arp")
	gen, err := NewGenerator(adapter, capture.NewStatusBoard(), arpPath)
	require.NoError(t, err)
	return gen, adapter, arpPath
}

func TestNewGeneratorSeedsNeighbourTable(t *testing.T) {
	gen, _, arpPath := newTestGenerator(t)

	entries, err := registry.NewARPTable(arpPath).Entries()
	require.NoError(t, err)
	require.Len(t, entries, len(gen.hosts))

	byIP := make(map[string]string, len(entries))
	for _, e := range entries {
		byIP[e.IP] = e.MAC
	}
	assert.Equal(t, "50:C7:BF:3A:91:C4", byIP["192.168.1.1"])
	assert.Equal(t, "44:19:B6:C4:72:0A", byIP["192.168.1.40"])
}

func TestCycleWritesRunTables(t *testing.T) {
	gen, adapter, _ := newTestGenerator(t)
	ctx := context.Background()

	gen.cycle(ctx)

	tables, err := adapter.ListCaptureTables(ctx)
	require.NoError(t, err)
	// Every host produces at least one flow per cycle and the camera
	// always speaks plaintext, so these four families must exist.
	for _, prefix := range []string{domain.ToolTcpdump, domain.ToolTshark, domain.ToolIftop, domain.ToolHttpry} {
		require.NotEmpty(t, tables[prefix], "missing run table for %s", prefix)
		count, err := adapter.CountRows(ctx, tables[prefix][0])
		require.NoError(t, err)
		assert.Positive(t, count, "no rows in %s", tables[prefix][0])
	}

	ips, err := adapter.DistinctLocalIPs(ctx, 50)
	require.NoError(t, err)
	assert.Contains(t, ips, "192.168.1.1")
	assert.Contains(t, ips, "192.168.1.40")

	counts := gen.board.RowCounts()
	assert.Greater(t, counts[domain.ToolTshark], int64(0))
}

func TestCycleReusesRunTables(t *testing.T) {
	gen, adapter, _ := newTestGenerator(t)
	ctx := context.Background()

	gen.cycle(ctx)
	gen.cycle(ctx)

	tables, err := adapter.ListCaptureTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables[domain.ToolTshark], 1, "second cycle should append, not rotate")
}

func TestPortScanBurstTripsDetector(t *testing.T) {
	gen, adapter, _ := newTestGenerator(t)
	ctx := context.Background()
	now := time.Now()

	batch := domain.Batch{}
	gen.emitPortScan(batch, now)
	for prefix, rows := range batch {
		gen.flush(ctx, prefix, rows)
	}

	counts, err := adapter.DistinctPortCounts(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, counts)
	best := 0
	for _, c := range counts {
		if c.PortCount > best {
			best = c.PortCount
		}
	}
	assert.Greater(t, best, 20, "sweep must cross the port scan threshold")
}

func TestBruteForceBurstMatchesSignatureFilter(t *testing.T) {
	gen, adapter, _ := newTestGenerator(t)
	ctx := context.Background()
	now := time.Now()

	batch := domain.Batch{}
	gen.emitBruteForce(batch, now)
	for prefix, rows := range batch {
		gen.flush(ctx, prefix, rows)
	}

	counts, err := adapter.FailedAuthCounts(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.GreaterOrEqual(t, counts[0].Failures, 6)
}

func TestDNSTunnelBurstHasLongLabels(t *testing.T) {
	gen, adapter, _ := newTestGenerator(t)
	ctx := context.Background()
	now := time.Now()

	batch := domain.Batch{}
	gen.emitDNSTunnel(batch, now)
	for prefix, rows := range batch {
		gen.flush(ctx, prefix, rows)
	}

	labels, err := adapter.LongDNSLabels(ctx, now.Add(-time.Minute), 63)
	require.NoError(t, err)
	assert.NotEmpty(t, labels)
}

func TestBeaconBurstRepeatsOneEndpoint(t *testing.T) {
	gen, adapter, _ := newTestGenerator(t)
	ctx := context.Background()
	now := time.Now()

	batch := domain.Batch{}
	gen.emitBeacons(batch, now)
	for prefix, rows := range batch {
		gen.flush(ctx, prefix, rows)
	}

	beacons, err := adapter.BeaconCounts(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	found := false
	for _, b := range beacons {
		if b.DestIP == "203.0.113.66" && b.DestPort == "4444" && b.Connections > 10 {
			found = true
		}
	}
	assert.True(t, found, "beacon burst must exceed the C2 threshold")
}

func TestChurnKeepsBaseFleet(t *testing.T) {
	gen, _, _ := newTestGenerator(t)
	base := len(gen.hosts)

	for i := 0; i < 200; i++ {
		gen.churn()
	}

	assert.GreaterOrEqual(t, len(gen.hosts), base)
	assert.LessOrEqual(t, len(gen.hosts), maxHosts)
	ips := make(map[string]bool)
	for _, h := range gen.hosts {
		ips[h.ip] = true
	}
	assert.True(t, ips["192.168.1.1"], "base devices never churn out")
	assert.True(t, ips["192.168.1.40"])
}

func TestRunStopsOnCancel(t *testing.T) {
	gen, _, _ := newTestGenerator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gen.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	for _, st := range gen.board.Statuses() {
		if st.Tool == domain.ToolTshark {
			assert.True(t, st.Running)
		}
	}
}
