package capture

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// ArgusCollector builds bidirectional flow summaries per cycle: record
// a 30 second window, condense it with argus, read the flows back with
// ra. All intermediate files are deleted at the end of the cycle.
type ArgusCollector struct {
	store      ports.CaptureStore
	iface      string
	captureDir string
	now        func() time.Time
}

// NewArgusCollector creates the flow summary collector.
func NewArgusCollector(store ports.CaptureStore, iface, captureDir string) *ArgusCollector {
	return &ArgusCollector{
		store:      store,
		iface:      iface,
		captureDir: captureDir,
		now:        time.Now,
	}
}

func (c *ArgusCollector) Tool() string            { return domain.ToolArgus }
func (c *ArgusCollector) Interval() time.Duration { return 30 * time.Second }

func (c *ArgusCollector) Collect(ctx context.Context) (int, error) {
	started := c.now()
	stamp := started.Format(domain.RunTableLayout)
	pcapPath := filepath.Join(c.captureDir, "argus_"+stamp+".pcap")
	flowPath := filepath.Join(c.captureDir, "argus_"+stamp+".argus")
	defer os.Remove(pcapPath)
	defer os.Remove(flowPath)

	_, err := runCommand(ctx, captureWindow+10*time.Second, "tshark",
		"-i", c.iface, "-a", "duration:30", "-w", pcapPath, "-q")
	if err != nil {
		return 0, err
	}

	if _, err := runCommand(ctx, 30*time.Second, "argus",
		"-r", pcapPath, "-w", flowPath); err != nil {
		return 0, err
	}
	os.Remove(pcapPath)

	out, err := runCommand(ctx, 30*time.Second, "ra", "-r", flowPath, "-n")
	if err != nil {
		return 0, err
	}

	records := parseRaOutput(string(out), c.now())
	if len(records) > maxRowsPerCycle {
		records = records[:maxRowsPerCycle]
	}
	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	table, err := storeRows(ctx, c.store, domain.ArgusTableSpec(), rows, started)
	if err != nil {
		return 0, err
	}
	if table != "" {
		slog.Info("stored flow summaries", "tool", c.Tool(), "table", table, "rows", len(rows))
	}
	return len(rows), nil
}

// parseRaOutput parses the ra client's column output. The column walk
// tolerates the optional fields ra prints depending on flow type.
func parseRaOutput(output string, now time.Time) []domain.FlowRecord {
	var records []domain.FlowRecord
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "StartTime") {
			continue
		}
		if rec, ok := parseRaLine(line, now); ok {
			records = append(records, rec)
		}
	}
	return records
}

func parseRaLine(line string, now time.Time) (domain.FlowRecord, bool) {
	parts := strings.Fields(line)
	if len(parts) < 10 {
		return domain.FlowRecord{}, false
	}

	rec := domain.FlowRecord{Timestamp: now.Format(domain.TimestampLayout)}
	idx := 2 // parts[0:2] are the flow's start date and time

	if d, err := strconv.ParseFloat(parts[idx], 64); err == nil {
		rec.Duration = d
		idx++
	}

	switch parts[idx] {
	case "tcp", "udp", "icmp", "arp":
		rec.Protocol = strings.ToUpper(parts[idx])
		idx++
	default:
		rec.Protocol = "OTHER"
	}

	rec.SrcIP, rec.SrcPort = splitFlowEndpoint(parts[idx])
	idx++
	idx++ // direction arrow
	if idx >= len(parts) {
		return domain.FlowRecord{}, false
	}
	rec.DestIP, rec.DestPort = splitFlowEndpoint(parts[idx])
	idx++

	if idx < len(parts) {
		rec.SrcPackets, rec.DestPackets = splitFlowCounter(parts[idx])
		idx++
	}
	if idx < len(parts) {
		rec.SrcBytes, rec.DestBytes = splitFlowCounter(parts[idx])
		idx++
	}
	if idx < len(parts) {
		rec.State = strings.Join(parts[idx:], " ")
	}
	return rec, true
}

// splitFlowEndpoint splits ra's addr.port notation, tolerating the
// addr:port form some builds emit.
func splitFlowEndpoint(s string) (ip, port string) {
	for _, sep := range []string{":", "."} {
		if i := strings.LastIndex(s, sep); i > 0 {
			candidate := s[i+1:]
			if _, err := strconv.Atoi(candidate); err == nil && strings.Count(s[:i], ".") >= 3 {
				return s[:i], candidate
			}
			if sep == ":" {
				if _, err := strconv.Atoi(candidate); err == nil {
					return s[:i], candidate
				}
			}
		}
	}
	return s, ""
}

// splitFlowCounter parses ra's combined Src:Dst counters, or a single
// total when the split form is off.
func splitFlowCounter(s string) (src, dest int64) {
	if i := strings.Index(s, ":"); i >= 0 {
		src, _ = strconv.ParseInt(s[:i], 10, 64)
		dest, _ = strconv.ParseInt(s[i+1:], 10, 64)
		return src, dest
	}
	src, _ = strconv.ParseInt(s, 10, 64)
	return src, 0
}

var _ ports.Collector = (*ArgusCollector)(nil)
