package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	defaultInterval = 5 * time.Minute

	// chainBudget bounds one full pass over the provider chain. Providers
	// carry their own per-request timeouts underneath it.
	chainBudget = 60 * time.Second

	maxTokens   = 4096
	temperature = 0.3
)

// Settings are the hot-reloadable aggregator knobs, read fresh at the top
// of every cycle so config file edits apply without a restart.
type Settings struct {
	Enabled  bool
	Interval time.Duration
}

// Aggregator drives the periodic analysis loop: build a snapshot, walk the
// provider chain until one returns a parseable report, persist the outcome
// either way.
type Aggregator struct {
	builder   *Builder
	analyses  ports.AnalysisStore
	notifier  ports.EventNotifier
	providers []ports.AnalysisProvider
	settings  func() Settings
	now       func() time.Time
}

// NewAggregator wires the analysis loop. The provider slice is tried in
// order; settings is consulted every cycle.
func NewAggregator(builder *Builder, analyses ports.AnalysisStore, notifier ports.EventNotifier, providers []ports.AnalysisProvider, settings func() Settings) *Aggregator {
	return &Aggregator{
		builder:   builder,
		analyses:  analyses,
		notifier:  notifier,
		providers: providers,
		settings:  settings,
		now:       time.Now,
	}
}

// Run executes cycles until the context is cancelled. The first cycle waits
// one full interval so the collectors have data to analyze.
func (a *Aggregator) Run(ctx context.Context) error {
	slog.Info("analysis aggregator started")
	for {
		interval := a.settings().Interval
		if interval <= 0 {
			interval = defaultInterval
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if err := a.Cycle(ctx); err != nil {
			slog.Error("analysis cycle failed", "error", err)
		}
	}
}

// Cycle runs one analysis pass. It is a no-op when analysis is disabled,
// no provider has a usable key, or there is no capture data yet.
func (a *Aggregator) Cycle(ctx context.Context) error {
	if !a.settings().Enabled {
		return nil
	}

	available := make([]ports.AnalysisProvider, 0, len(a.providers))
	for _, p := range a.providers {
		if p.Available() {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		slog.Info("analysis skipped: no provider has a usable API key")
		return nil
	}

	snap := a.builder.Build(ctx)
	if snap.DataPoints() == 0 {
		slog.Info("analysis skipped: no capture data yet")
		return nil
	}

	req := ports.AnalysisRequest{
		System:      systemInstruction,
		Prompt:      BuildPrompt(snap),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	started := a.now()
	chainCtx, cancel := context.WithTimeout(ctx, chainBudget)
	defer cancel()

	var failures []string
	for _, p := range available {
		text, err := p.Analyze(chainCtx, req)
		if err != nil {
			slog.Warn("analysis provider failed", "provider", p.Name(), "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		report, err := ParseReport(text)
		if err != nil {
			slog.Warn("analysis response rejected", "provider", p.Name(), "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		return a.store(ctx, report, p, text, started)
	}
	return a.recordFailure(ctx, started, failures)
}

func (a *Aggregator) store(ctx context.Context, report *domain.AnalysisReport, p ports.AnalysisProvider, raw string, started time.Time) error {
	at := a.now()
	rec := domain.NewAnalysis(report, p.Model(), raw, at)
	if err := a.analyses.SaveAnalysis(ctx, &rec); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	cycle := domain.AnalysisCycle{
		AnalyzedAt:   at,
		ModelUsed:    p.Model(),
		Success:      true,
		ProcessingMS: a.now().Sub(started).Milliseconds(),
	}
	if err := a.analyses.RecordCycle(ctx, &cycle); err != nil {
		slog.Warn("analysis cycle record failed", "error", err)
	}

	if a.notifier != nil {
		a.notifier.NotifyAnalysis(rec)
	}
	slog.Info("analysis complete",
		"provider", p.Name(),
		"model", p.Model(),
		"threat_level", report.ThreatLevel,
		"health_score", report.NetworkHealthScore)
	return nil
}

func (a *Aggregator) recordFailure(ctx context.Context, started time.Time, failures []string) error {
	msg := "no analysis provider reachable"
	if len(failures) > 0 {
		msg = strings.Join(failures, "; ")
	}
	cycle := domain.AnalysisCycle{
		AnalyzedAt:   a.now(),
		Success:      false,
		ErrorMessage: msg,
		ProcessingMS: a.now().Sub(started).Milliseconds(),
	}
	if err := a.analyses.RecordCycle(ctx, &cycle); err != nil {
		return fmt.Errorf("record failed cycle: %w", err)
	}
	return fmt.Errorf("all providers failed: %s", msg)
}

// ParseReport validates raw model output against the report contract.
// Models wrap JSON in markdown fences or reasoning text often enough that
// peeling those off is part of the contract, not a workaround.
func ParseReport(raw string) (*domain.AnalysisReport, error) {
	cleaned := stripFences(raw)

	var report domain.AnalysisReport
	err := json.Unmarshal([]byte(cleaned), &report)
	if err != nil {
		// Reasoning models sometimes narrate before the payload. Take
		// the outermost brace pair and try once more.
		if inner := extractJSON(cleaned); inner != "" {
			err = json.Unmarshal([]byte(inner), &report)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if report.ThreatLevel == "" {
		return nil, errors.New("response missing threat_level")
	}
	return &report, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return ""
}
