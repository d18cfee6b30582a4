package capture

import (
	"sort"
	"sync"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// StatusBoard aggregates per-tool health for the system status API.
// Runners report process state, collector loops report ingest results.
type StatusBoard struct {
	mu    sync.RWMutex
	tools map[string]*domain.CollectorStatus
}

// NewStatusBoard creates an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{tools: make(map[string]*domain.CollectorStatus)}
}

func (b *StatusBoard) entry(tool string) *domain.CollectorStatus {
	st, ok := b.tools[tool]
	if !ok {
		st = &domain.CollectorStatus{Tool: tool}
		b.tools[tool] = st
	}
	return st
}

// SetRunning records the supervised process state for a tool.
func (b *StatusBoard) SetRunning(tool string, pid int, running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.entry(tool)
	st.Running = running
	st.PID = pid
}

// RecordRestart counts a process restart and keeps its exit error.
func (b *StatusBoard) RecordRestart(tool string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.entry(tool)
	st.Restarts++
	if err != nil {
		st.LastError = err.Error()
	}
}

// RecordRows notes a successful collection cycle.
func (b *StatusBoard) RecordRows(tool string, rows int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.entry(tool)
	st.RowsIngested += int64(rows)
	if rows > 0 {
		st.LastRowsAt = time.Now()
	}
	st.LastError = ""
}

// RecordError notes a failed collection cycle.
func (b *StatusBoard) RecordError(tool string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entry(tool).LastError = err.Error()
}

// Statuses returns a stable snapshot ordered by tool name.
func (b *StatusBoard) Statuses() []domain.CollectorStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.CollectorStatus, 0, len(b.tools))
	for _, st := range b.tools {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}

// RowCounts returns rows ingested per tool since start.
func (b *StatusBoard) RowCounts() map[string]int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int64, len(b.tools))
	for tool, st := range b.tools {
		out[tool] = st.RowsIngested
	}
	return out
}
