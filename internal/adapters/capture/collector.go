// Package capture supervises the external capture tools and turns
// their output into timestamped run tables. Each tool pairs a Runner
// (process supervision) with a Collector (parse and store); position
// stores make restarts resume where the last commit left off.
package capture

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/telemetry"
)

// maxRowsPerCycle caps how many rows one collection cycle may store.
// When the ceiling hits, the position only advances over consumed
// input and the remainder waits for the next cycle.
const maxRowsPerCycle = 10000

func itoa(n int) string { return strconv.Itoa(n) }

// storeRows creates a fresh run table and appends the rows to it.
// Empty batches create no table.
func storeRows(ctx context.Context, store ports.CaptureStore, spec domain.TableSpec, rows []domain.Row, startedAt time.Time) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	table, err := store.CreateRunTable(ctx, spec, startedAt)
	if err != nil {
		return "", err
	}
	if err := store.InsertRows(ctx, table, spec.Columns, rows); err != nil {
		return "", err
	}
	return table, nil
}

// RunLoop drives one collector until ctx ends. Starts are jittered so
// the collectors do not align their writes against the shared SQLite
// file, and a failing cycle never stops the loop.
func RunLoop(ctx context.Context, c ports.Collector, board *StatusBoard) {
	jitter := time.Duration(rand.Intn(5000)) * time.Millisecond
	select {
	case <-ctx.Done():
		return
	case <-time.After(jitter):
	}

	ticker := time.NewTicker(c.Interval())
	defer ticker.Stop()

	for {
		runCycle(ctx, c, board)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runCycle(ctx context.Context, c ports.Collector, board *StatusBoard) {
	tool := c.Tool()
	rows, err := c.Collect(ctx)
	if rows > 0 {
		telemetry.RowsIngested.WithLabelValues(tool).Add(float64(rows))
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		telemetry.CollectorErrors.WithLabelValues(tool).Inc()
		if board != nil {
			board.RecordError(tool, err)
		}
		slog.Error("collection cycle failed", "tool", tool, "error", err, "rows", rows)
		return
	}
	if board != nil {
		board.RecordRows(tool, rows)
	}
	if rows > 0 {
		slog.Debug("collection cycle complete", "tool", tool, "rows", rows)
	}
}
