package capture

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// P0fCommand builds the passive fingerprinter invocation. The previous
// log is removed first so a restart does not replay stale entries past
// a reset position.
func P0fCommand(iface, logPath string) CommandFunc {
	return func(ctx context.Context) *exec.Cmd {
		os.Remove(logPath)
		return exec.CommandContext(ctx, "p0f", "-i", iface, "-o", logPath, "-p")
	}
}

// P0fCollector tails the p0f log and stores one row per observed
// connection, merging the syn, mtu and http module lines that p0f
// emits separately.
type P0fCollector struct {
	store     ports.CaptureStore
	positions *OffsetStore
	logPath   string
	now       func() time.Time
}

// NewP0fCollector creates the fingerprint collector.
func NewP0fCollector(store ports.CaptureStore, positions *OffsetStore, logPath string) *P0fCollector {
	return &P0fCollector{
		store:     store,
		positions: positions,
		logPath:   logPath,
		now:       time.Now,
	}
}

func (c *P0fCollector) Tool() string            { return domain.ToolP0f }
func (c *P0fCollector) Interval() time.Duration { return 5 * time.Minute }

func (c *P0fCollector) Collect(ctx context.Context) (int, error) {
	offset := c.positions.Offset(ctx)
	lines, newOffset, more, err := ReadLines(c.logPath, offset, maxRowsPerCycle)
	if err != nil {
		return 0, err
	}
	if more {
		slog.Info("row ceiling reached, deferring log tail", "tool", c.Tool())
	}
	if len(lines) == 0 {
		return 0, c.positions.SetOffset(ctx, newOffset)
	}

	records := parseP0fLines(lines, c.now())
	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	table, err := storeRows(ctx, c.store, domain.P0fTableSpec(), rows, c.now())
	if err != nil {
		return 0, err
	}
	if table != "" {
		slog.Info("stored fingerprints", "tool", c.Tool(), "table", table, "rows", len(rows))
	}
	return len(rows), c.positions.SetOffset(ctx, newOffset)
}

var (
	p0fTimestampRe = regexp.MustCompile(`^\[([^\]]+)\]`)
	p0fEndpointRe  = regexp.MustCompile(`(cli|srv)=([^/|]+)/(\d+)`)
)

// p0fField extracts one key=value segment from a pipe-delimited line.
func p0fField(line, key string) string {
	for _, seg := range strings.Split(line, "|") {
		if rest, ok := strings.CutPrefix(seg, key+"="); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// parseP0fLines groups log lines by connection and timestamp, merging
// the per-module observations into one record per group. OS details
// come from the client's SYN signature, application banners from the
// http module, link type from the mtu module.
func parseP0fLines(lines []string, now time.Time) []domain.FingerprintRecord {
	grouped := make(map[string]*domain.FingerprintRecord)
	var order []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "[") {
			continue
		}

		tsMatch := p0fTimestampRe.FindStringSubmatch(line)
		timestamp := ""
		if tsMatch != nil {
			timestamp = tsMatch[1]
		}

		var cliIP, cliPort, srvIP, srvPort string
		for _, m := range p0fEndpointRe.FindAllStringSubmatch(line, -1) {
			switch m[1] {
			case "cli":
				cliIP, cliPort = m[2], m[3]
			case "srv":
				srvIP, srvPort = m[2], m[3]
			}
		}
		if cliIP == "" || srvIP == "" {
			continue
		}

		key := cliIP + ":" + cliPort + "->" + srvIP + ":" + srvPort + "@" + timestamp
		rec, ok := grouped[key]
		if !ok {
			rec = &domain.FingerprintRecord{
				Timestamp: now,
				SrcIP:     cliIP,
				SrcPort:   cliPort,
				DestIP:    srvIP,
				DestPort:  srvPort,
			}
			grouped[key] = rec
			order = append(order, key)
		}

		subject := p0fField(line, "subj")
		if subject == "" {
			subject = "cli"
		}
		mod := p0fField(line, "mod")

		if (mod == "syn" || mod == "syn+ack") && subject == "cli" {
			if osInfo := p0fField(line, "os"); osInfo != "" && osInfo != "???" {
				parts := strings.Fields(osInfo)
				rec.OSName = osInfo
				if len(parts) >= 3 {
					rec.OSName = strings.Join(parts[:3], " ")
				}
				if len(parts) > 0 {
					rec.OSFlavor = parts[0]
				}
				if len(parts) > 1 {
					rec.OSVersion = strings.Join(parts[1:], " ")
				}
			}
		}
		if dist := p0fField(line, "dist"); dist != "" {
			rec.Distance = dist
		}
		if mod == "mtu" {
			if link := p0fField(line, "link"); link != "" {
				rec.LinkType = link
			}
		}
		// The module reads "http request" or "http response".
		if strings.HasPrefix(mod, "http") {
			if app := p0fField(line, "app"); app != "" && app != "???" {
				switch subject {
				case "srv":
					rec.HTTPName = app
				case "cli":
					rec.HTTPFlavor = app
				}
			}
		}
	}

	records := make([]domain.FingerprintRecord, 0, len(order))
	for _, key := range order {
		records = append(records, *grouped[key])
	}
	return records
}

var _ ports.Collector = (*P0fCollector)(nil)
