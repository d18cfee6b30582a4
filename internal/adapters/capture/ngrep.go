package capture

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const maxMatchedData = 1000

// interestingPatterns filters ngrep entries down to request lines and
// credential-bearing payloads worth keeping.
var interestingPatterns = []string{
	"GET", "POST", "password", "pwd", "login", "user", "HTTP", "Host:",
}

// NgrepCommand builds the payload matcher invocation. The empty
// pattern matches everything; filtering happens at parse time.
func NgrepCommand(iface string) CommandFunc {
	return func(ctx context.Context) *exec.Cmd {
		return exec.CommandContext(ctx, "ngrep",
			"-d", iface, "-W", "byline", "-t", "", "tcp")
	}
}

// NgrepCollector tails the matcher log for blank-line delimited
// entries and keeps the ones containing interesting payloads. The log
// and position restart from zero with each daemon start, because the
// runner truncates the log on spawn.
type NgrepCollector struct {
	store     ports.CaptureStore
	positions *OffsetStore
	logPath   string
	iface     string
	now       func() time.Time
}

// NewNgrepCollector creates the payload-match collector and resets its
// position to match the truncated log.
func NewNgrepCollector(store ports.CaptureStore, positions *OffsetStore, logPath, iface string) *NgrepCollector {
	positions.Reset(context.Background())
	return &NgrepCollector{
		store:     store,
		positions: positions,
		logPath:   logPath,
		iface:     iface,
		now:       time.Now,
	}
}

func (c *NgrepCollector) Tool() string            { return domain.ToolNgrep }
func (c *NgrepCollector) Interval() time.Duration { return 30 * time.Second }

func (c *NgrepCollector) Collect(ctx context.Context) (int, error) {
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

	records := parseNgrepLines(lines, c.iface, c.now())
	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	table, err := storeRows(ctx, c.store, domain.NgrepTableSpec(), rows, c.now())
	if err != nil {
		return 0, err
	}
	if table != "" {
		slog.Info("stored payload matches", "tool", c.Tool(), "table", table, "rows", len(rows))
	}
	return len(rows), c.positions.SetOffset(ctx, newOffset)
}

var (
	ngrepV4Re = regexp.MustCompile(`(\d+\.\d+\.\d+\.\d+):(\d+)\s*->\s*(\d+\.\d+\.\d+\.\d+):(\d+)`)
	ngrepV6Re = regexp.MustCompile(`(?i)([0-9a-f:]+):(\d+)\s*->\s*([0-9a-f:]+):(\d+)`)
)

// parseNgrepLines splits the tail into blank-line delimited entries
// and parses the interesting ones.
func parseNgrepLines(lines []string, iface string, now time.Time) []domain.MatchRecord {
	var records []domain.MatchRecord
	var entry []string

	flush := func() {
		if len(entry) == 0 {
			return
		}
		if rec, ok := parseNgrepEntry(entry, iface, now); ok {
			records = append(records, rec)
		}
		entry = nil
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		entry = append(entry, line)
	}
	flush()
	return records
}

func parseNgrepEntry(lines []string, iface string, now time.Time) (domain.MatchRecord, bool) {
	joined := strings.Join(lines, " ")
	interesting := false
	for _, p := range interestingPatterns {
		if strings.Contains(joined, p) {
			interesting = true
			break
		}
	}
	if !interesting {
		return domain.MatchRecord{}, false
	}

	rec := domain.MatchRecord{Timestamp: now, Interface: iface}
	var payload strings.Builder

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "interface:"),
			strings.HasPrefix(line, "filter:"),
			strings.HasPrefix(line, "match"),
			strings.HasPrefix(line, "####"):
			continue
		case strings.Contains(line, "->") && (strings.HasPrefix(line, "T ") || strings.HasPrefix(line, "U ")):
			if strings.HasPrefix(line, "T") {
				rec.Protocol = "TCP"
			} else {
				rec.Protocol = "UDP"
			}
			m := ngrepV4Re.FindStringSubmatch(line)
			if m == nil {
				m = ngrepV6Re.FindStringSubmatch(line)
			}
			if m == nil {
				continue
			}
			rec.SrcIP, rec.SrcPort = m[1], m[2]
			rec.DestIP, rec.DestPort = m[3], m[4]
		default:
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				payload.WriteString(trimmed)
				payload.WriteByte(' ')
			}
		}
	}

	if rec.SrcIP == "" {
		return domain.MatchRecord{}, false
	}
	rec.MatchedData = strings.TrimSpace(payload.String())
	if len(rec.MatchedData) > maxMatchedData {
		rec.MatchedData = rec.MatchedData[:maxMatchedData]
	}
	return rec, true
}

var _ ports.Collector = (*NgrepCollector)(nil)
