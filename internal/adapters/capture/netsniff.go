package capture

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// A netsniff pcap becomes processable once nothing has been written to
// it for this long.
const netsniffSettleAge = 30 * time.Second

// netsniffFields is the light decode list for frame-level rows.
var netsniffFields = []string{
	"frame.time", "frame.len",
	"ip.src", "ip.dst",
	"tcp.srcport", "tcp.dstport", "udp.srcport", "udp.dstport",
	"frame.protocols",
}

// NetsniffCommand builds the zero-copy sniffer invocation with a fresh
// timestamped output file per start.
func NetsniffCommand(iface, captureDir string) CommandFunc {
	return func(ctx context.Context) *exec.Cmd {
		out := filepath.Join(captureDir,
			"capture_"+time.Now().Format(domain.RunTableLayout)+".pcap")
		return exec.CommandContext(ctx, "netsniff-ng",
			"-i", iface, "-o", out, "--silent")
	}
}

// NetsniffCollector ingests the sniffer's pcaps once they settle,
// deletes them, and kicks the runner when it consumed the file the
// sniffer was still attached to so capture resumes into a fresh one.
type NetsniffCollector struct {
	store      ports.CaptureStore
	positions  *ProcessedListStore
	captureDir string
	runner     *Runner
	now        func() time.Time
}

// NewNetsniffCollector creates the frame collector. runner may be nil
// in tests.
func NewNetsniffCollector(store ports.CaptureStore, positions *ProcessedListStore, captureDir string, runner *Runner) *NetsniffCollector {
	return &NetsniffCollector{
		store:      store,
		positions:  positions,
		captureDir: captureDir,
		runner:     runner,
		now:        time.Now,
	}
}

func (c *NetsniffCollector) Tool() string            { return domain.ToolNetsniff }
func (c *NetsniffCollector) Interval() time.Duration { return 30 * time.Second }

func (c *NetsniffCollector) Collect(ctx context.Context) (int, error) {
	paths, err := filepath.Glob(filepath.Join(c.captureDir, "capture_*.pcap"))
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	total := 0
	for i, path := range paths {
		if total >= maxRowsPerCycle {
			break
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < netsniffSettleAge {
			continue
		}
		name := filepath.Base(path)
		mtime := info.ModTime().Unix()

		if !c.positions.IsProcessed(ctx, name, mtime) {
			records, err := c.decode(ctx, path)
			if err != nil {
				return total, err
			}
			if len(records) > maxRowsPerCycle-total {
				records = records[:maxRowsPerCycle-total]
			}
			if len(records) > 0 {
				rows := make([]domain.Row, len(records))
				for j, r := range records {
					rows[j] = r.Row()
				}
				table, err := storeRows(ctx, c.store, domain.NetsniffTableSpec(), rows, c.now())
				if err != nil {
					return total, err
				}
				slog.Info("stored decoded frames",
					"tool", c.Tool(), "table", table, "rows", len(rows), "pcap", name)
				total += len(rows)
			}
			if err := c.positions.MarkProcessed(ctx, name, mtime); err != nil {
				return total, err
			}
		}

		if err := os.Remove(path); err == nil {
			c.positions.Forget(ctx, name)
			// Consuming the newest file means the sniffer lost its
			// output; restart it onto a fresh one.
			if i == len(paths)-1 && c.runner != nil {
				c.runner.Kick()
			}
		}
	}
	return total, nil
}

func (c *NetsniffCollector) decode(ctx context.Context, path string) ([]domain.FrameRecord, error) {
	if tsharkAvailable() {
		packets, err := readPCAPJSON(ctx, path, netsniffFields)
		if err != nil {
			return nil, err
		}
		return parseNetsniffPackets(packets, c.now()), nil
	}
	return decodeFramesNative(path, maxRowsPerCycle, c.now())
}

// parseNetsniffPackets converts the light JSON decode into frame rows.
func parseNetsniffPackets(packets []tsharkPacket, now time.Time) []domain.FrameRecord {
	records := make([]domain.FrameRecord, 0, len(packets))
	for _, p := range packets {
		rec := domain.FrameRecord{
			Timestamp: now,
			SrcIP:     p.field("ip.src"),
			DestIP:    p.field("ip.dst"),
			Protocol:  protocolFromStack(p.field("frame.protocols")),
			Length:    int(p.intField("frame.len")),
		}
		rec.SrcPort = p.field("tcp.srcport")
		if rec.SrcPort == "" {
			rec.SrcPort = p.field("udp.srcport")
		}
		rec.DestPort = p.field("tcp.dstport")
		if rec.DestPort == "" {
			rec.DestPort = p.field("udp.dstport")
		}
		records = append(records, rec)
	}
	return records
}

var _ ports.Collector = (*NetsniffCollector)(nil)
