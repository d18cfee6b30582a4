// Package scoring computes per-device security scores from inventory
// completeness, open findings, and observed traffic hygiene.
package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	baseScore = 100

	penaltyNoHostname  = 10
	penaltyNoMAC       = 15
	penaltyUnknownType = 10
	penaltyStale       = 5
	penaltyIoT         = 5
	bonusKnownCategory = 3
	bonusNetworkGear   = 10

	// Unencrypted share of the device's web traffic (port 80 rows over
	// rows to 80+443, only when total > 10).
	penaltyHTTPHeavy    = 15 // > 70 %
	penaltyHTTPModerate = 8  // > 40 %

	staleAfter = 24 * time.Hour

	// Window over the latest capture tables for the HTTP-ratio check.
	httpWindow = time.Hour
)

// Only the single worst unresolved finding counts against the score.
var severityPenalty = map[domain.Severity]int{
	domain.SeverityCritical: 40,
	domain.SeverityHigh:     25,
	domain.SeverityMedium:   15,
	domain.SeverityLow:      5,
}

// GradeFor maps a 0-100 score to a letter grade.
func GradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Scorer walks the registry and recomputes every device's score, writing
// results back to both the in-memory registry and the device table. It
// runs after each discovery cycle and on demand from the API.
type Scorer struct {
	registry ports.DeviceRegistry
	store    ports.DeviceStore
	vulns    ports.VulnerabilityStore
	queries  ports.CaptureQueries

	now func() time.Time
}

func NewScorer(registry ports.DeviceRegistry, store ports.DeviceStore, vulns ports.VulnerabilityStore, queries ports.CaptureQueries) *Scorer {
	return &Scorer{
		registry: registry,
		store:    store,
		vulns:    vulns,
		queries:  queries,
		now:      time.Now,
	}
}

// ScoreAll recomputes and persists scores for every tracked device.
// Per-device query failures degrade that device's inputs instead of
// aborting the pass. Returns the number of devices scored.
func (s *Scorer) ScoreAll(ctx context.Context) (int, error) {
	now := s.now()

	httpCounts := map[string]domain.TrafficSummary{}
	if s.queries != nil {
		counts, err := s.queries.HTTPPortCounts(ctx, now.Add(-httpWindow))
		if err != nil {
			slog.Warn("http ratio query failed, scoring without it", "error", err)
		} else {
			httpCounts = counts
		}
	}

	scored := 0
	for _, d := range s.registry.GetAllDevices() {
		if ctx.Err() != nil {
			return scored, ctx.Err()
		}
		score := s.scoreDevice(ctx, d, httpCounts[d.IP], now)
		grade := GradeFor(score)

		s.registry.SetScore(d.Key(), score, grade)
		if s.store != nil {
			if err := s.store.UpdateScore(ctx, d.Key(), score, grade); err != nil {
				slog.Warn("score write failed", "device", d.Key(), "error", err)
				continue
			}
		}
		scored++
	}
	return scored, nil
}

func (s *Scorer) scoreDevice(ctx context.Context, d domain.Device, web domain.TrafficSummary, now time.Time) int {
	score := baseScore

	if d.Hostname == "" {
		score -= penaltyNoHostname
	}
	if d.MAC == "" {
		score -= penaltyNoMAC
	}
	if d.Type == domain.TypeUnknown {
		score -= penaltyUnknownType
	}

	score -= s.worstFindingPenalty(ctx, d.IP)
	score -= httpRatioPenalty(web)

	if !d.LastSeen.IsZero() && now.Sub(d.LastSeen) > staleAfter {
		score -= penaltyStale
	}

	switch d.Type {
	case domain.TypeIoT:
		score -= penaltyIoT
		if d.Category != "" && d.Category != domain.CategoryUnknown {
			score += bonusKnownCategory
		}
	case domain.TypeNetwork:
		score += bonusNetworkGear
	}

	return clamp(score)
}

func (s *Scorer) worstFindingPenalty(ctx context.Context, deviceIP string) int {
	if s.vulns == nil || deviceIP == "" {
		return 0
	}
	open, err := s.vulns.UnresolvedByDevice(ctx, deviceIP)
	if err != nil {
		slog.Warn("vulnerability lookup failed", "device", deviceIP, "error", err)
		return 0
	}
	worst := 0
	for _, v := range open {
		if p := severityPenalty[v.Severity]; p > worst {
			worst = p
		}
	}
	return worst
}

func httpRatioPenalty(web domain.TrafficSummary) int {
	if web.TotalCount <= 10 || web.HTTPCount == 0 {
		return 0
	}
	ratio := float64(web.HTTPCount) / float64(web.TotalCount)
	switch {
	case ratio > 0.7:
		return penaltyHTTPHeavy
	case ratio > 0.4:
		return penaltyHTTPModerate
	}
	return 0
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
