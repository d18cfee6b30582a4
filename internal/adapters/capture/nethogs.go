package capture

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// NethogsCollector attributes bandwidth to local processes. nethogs
// has no bounded-run mode, so each cycle runs it in trace mode and
// kills it after ten seconds, keeping whatever it printed.
type NethogsCollector struct {
	store ports.CaptureStore
	iface string
	now   func() time.Time
}

func NewNethogsCollector(store ports.CaptureStore, iface string) *NethogsCollector {
	return &NethogsCollector{store: store, iface: iface, now: time.Now}
}

func (c *NethogsCollector) Tool() string            { return domain.ToolNethogs }
func (c *NethogsCollector) Interval() time.Duration { return 30 * time.Second }

func (c *NethogsCollector) Collect(ctx context.Context) (int, error) {
	out, err := runCommand(ctx, 10*time.Second, "nethogs", "-t", "-d", "1", c.iface)
	// The timeout kill is the normal exit path; only a silent failure
	// counts as an error.
	if err != nil && len(out) == 0 {
		return 0, err
	}

	records := parseNethogsOutput(string(out), c.now())
	if len(records) > maxRowsPerCycle {
		records = records[:maxRowsPerCycle]
	}
	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	table, err := storeRows(ctx, c.store, domain.NethogsTableSpec(), rows, c.now())
	if err != nil {
		return 0, err
	}
	if table != "" {
		slog.Info("stored process samples", "tool", c.Tool(), "table", table, "rows", len(rows))
	}
	return len(rows), nil
}

// parseNethogsOutput reads trace-mode lines of the form
// "program/pid/uid<TAB>sent<TAB>received". Columns are tab-separated
// with a whitespace fallback; the program path may itself contain
// slashes, so pid and uid are taken from the right.
func parseNethogsOutput(output string, now time.Time) []domain.ProcessRecord {
	var records []domain.ProcessRecord
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Refreshing") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			fields = strings.Fields(line)
		}
		if len(fields) < 3 {
			continue
		}

		sent := parseKB(strings.TrimSpace(fields[1]))
		received := parseKB(strings.TrimSpace(fields[2]))
		if sent == 0 && received == 0 {
			continue
		}

		segs := strings.Split(strings.TrimSpace(fields[0]), "/")
		if len(segs) < 3 {
			continue
		}
		uid := segs[len(segs)-1]
		pid := segs[len(segs)-2]
		program := strings.Join(segs[:len(segs)-2], "/")

		records = append(records, domain.ProcessRecord{
			Timestamp:  now,
			Program:    path.Base(program),
			PID:        pid,
			User:       uid,
			SentKB:     sent,
			ReceivedKB: received,
		})
	}
	return records
}

func parseKB(s string) float64 {
	if s == "?" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

var _ ports.Collector = (*NethogsCollector)(nil)
