package ports

import (
	"context"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// CaptureStore manages the per-run capture tables. Each collector run
// writes into its own timestamped table; existing run tables are never
// modified after the run ends.
type CaptureStore interface {
	// CreateRunTable creates a fresh table for one collector run and
	// returns its full name (prefix_YYYYMMDD_HHMMSS).
	CreateRunTable(ctx context.Context, spec domain.TableSpec, startedAt time.Time) (string, error)
	// InsertRows appends parsed rows to a run table.
	InsertRows(ctx context.Context, table string, columns []domain.Column, rows []domain.Row) error
	// LatestTable returns the newest run table for a prefix, or "" when
	// none exists. Template tables are not considered.
	LatestTable(ctx context.Context, prefix string) (string, error)
	// ListCaptureTables returns all run tables grouped by prefix.
	ListCaptureTables(ctx context.Context) (map[string][]string, error)
	// TableRows reads back rows from a run table, newest first.
	TableRows(ctx context.Context, table string, limit int) ([]domain.TableRow, error)
	// TableRowsPage reads a page of rows from a run table, newest first.
	TableRowsPage(ctx context.Context, table string, limit, offset int) ([]domain.TableRow, error)
	// CountRows returns the number of rows in a run table.
	CountRows(ctx context.Context, table string) (int64, error)
}

// CaptureQueries answers the detection and enrichment questions the
// services ask of raw capture data. Implementations query the latest
// run tables; a missing table yields empty results, not an error.
type CaptureQueries interface {
	// DistinctLocalIPs lists local addresses seen as source or
	// destination in the latest packet capture tables.
	DistinctLocalIPs(ctx context.Context, limit int) ([]string, error)
	// DistinctPortCounts counts distinct destination ports per source
	// inside the window, for port scan detection.
	DistinctPortCounts(ctx context.Context, since time.Time) ([]domain.PortCount, error)
	// FailedAuthCounts counts failed authentication events per source
	// from the latest suricata alerts, for brute force detection.
	FailedAuthCounts(ctx context.Context, since time.Time) ([]domain.AuthFailCount, error)
	// OutboundBytes totals bytes sent by local sources to external
	// destinations inside the window.
	OutboundBytes(ctx context.Context, since time.Time) ([]domain.ByteCount, error)
	// BeaconCounts counts connections from local sources to single
	// external endpoints inside the window.
	BeaconCounts(ctx context.Context, since time.Time) ([]domain.BeaconCount, error)
	// LongDNSLabels returns DNS queries whose longest label exceeds the
	// threshold inside the window.
	LongDNSLabels(ctx context.Context, since time.Time, minLabelLen int) ([]domain.DNSLabel, error)
	// DNSQueryCounts counts DNS queries per source inside the window,
	// for tunnelling rate detection.
	DNSQueryCounts(ctx context.Context, since time.Time) ([]domain.QueryCount, error)
	// ExternalSuspiciousConnCount counts a device's connections to
	// external endpoints on ports outside the common service set.
	ExternalSuspiciousConnCount(ctx context.Context, deviceIP string, since time.Time) (int, error)
	// DeviceTraffic aggregates packet and byte totals for one device.
	DeviceTraffic(ctx context.Context, deviceIP string, since time.Time) (domain.TrafficSummary, error)
	// HTTPPortCounts returns plaintext HTTP versus total connection
	// counts per source, for the unencrypted ratio check.
	HTTPPortCounts(ctx context.Context, since time.Time) (map[string]domain.TrafficSummary, error)
	// RemoteTalks lists the remote endpoints one device exchanged
	// traffic with inside the window.
	RemoteTalks(ctx context.Context, deviceIP string, since time.Time, limit int) ([]domain.RemoteTalk, error)
}

// PositionStore remembers how far a collector has read its source, so
// restarts resume without re-ingesting. Positions commit only after the
// rows they cover are stored.
type PositionStore interface {
	// Load returns the saved position, or the zero value when none.
	Load(ctx context.Context) (string, error)
	// Save commits a new position.
	Save(ctx context.Context, position string) error
	// Reset forgets the position.
	Reset(ctx context.Context) error
}

// Collector turns one tool's output into capture rows. A collector
// runs cycles until its context ends; each cycle reads whatever new
// output exists, parses it, and stores it under the run's tables.
type Collector interface {
	// Tool returns the tool name the collector ingests.
	Tool() string
	// Interval returns the pause between collection cycles.
	Interval() time.Duration
	// Collect runs one cycle and returns the number of rows stored.
	Collect(ctx context.Context) (int, error)
}
