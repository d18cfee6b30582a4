package capture

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// HttpryCollector tails the httpry transaction log. httpry detaches
// into its own daemon, so supervision is by log existence: a missing
// log triggers a respawn instead of a process wait.
type HttpryCollector struct {
	store     ports.CaptureStore
	positions *OffsetStore
	logPath   string
	iface     string
	board     *StatusBoard
	now       func() time.Time
}

// NewHttpryCollector creates the HTTP transaction collector.
func NewHttpryCollector(store ports.CaptureStore, positions *OffsetStore, logPath, iface string, board *StatusBoard) *HttpryCollector {
	return &HttpryCollector{
		store:     store,
		positions: positions,
		logPath:   logPath,
		iface:     iface,
		board:     board,
		now:       time.Now,
	}
}

func (c *HttpryCollector) Tool() string            { return domain.ToolHttpry }
func (c *HttpryCollector) Interval() time.Duration { return 30 * time.Second }

// ensureRunning starts the daemon when its log is missing. The daemon
// owns the log file, so existence doubles as a liveness signal.
func (c *HttpryCollector) ensureRunning(ctx context.Context) error {
	if _, err := os.Stat(c.logPath); err == nil {
		if c.board != nil {
			c.board.SetRunning(c.Tool(), 0, true)
		}
		return nil
	}
	c.positions.Reset(ctx)

	slog.Info("starting capture daemon", "tool", c.Tool())
	_, err := runCommand(ctx, 10*time.Second, "httpry",
		"-i", c.iface, "-o", c.logPath, "-d", "-b")
	if err != nil {
		if c.board != nil {
			c.board.RecordRestart(c.Tool(), err)
		}
		return err
	}

	// The daemon needs a moment to create its log.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}
	if _, statErr := os.Stat(c.logPath); statErr != nil {
		return statErr
	}
	if c.board != nil {
		c.board.SetRunning(c.Tool(), 0, true)
	}
	return nil
}

func (c *HttpryCollector) Collect(ctx context.Context) (int, error) {
	if err := c.ensureRunning(ctx); err != nil {
		return 0, err
	}

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

	records := parseHttpryLines(lines)
	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	table, err := storeRows(ctx, c.store, domain.HttpryTableSpec(), rows, c.now())
	if err != nil {
		return 0, err
	}
	if table != "" {
		slog.Info("stored http transactions", "tool", c.Tool(), "table", table, "rows", len(rows))
	}
	return len(rows), c.positions.SetOffset(ctx, newOffset)
}

// parseHttpryLines parses the tab-separated transaction log. Comment
// lines and truncated records are dropped.
func parseHttpryLines(lines []string) []domain.HTTPRecord {
	var records []domain.HTTPRecord
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 5 {
			continue
		}
		get := func(i int) string {
			if i < len(parts) {
				return strings.TrimSpace(parts[i])
			}
			return ""
		}
		rec := domain.HTTPRecord{
			Timestamp:    get(0),
			SrcIP:        get(1),
			DestIP:       get(2),
			Direction:    get(3),
			Method:       get(4),
			Host:         get(5),
			RequestURI:   get(6),
			HTTPVersion:  get(7),
			StatusCode:   get(8),
			ReasonPhrase: get(9),
		}
		if rec.SrcIP == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

var _ ports.Collector = (*HttpryCollector)(nil)
