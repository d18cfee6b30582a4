package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// trafficIPLimit caps how many distinct addresses one cycle pulls from
// the capture tables.
const trafficIPLimit = 500

// DeviceSink receives merged devices for background persistence.
type DeviceSink interface {
	Persist(device domain.Device)
}

// Tracker runs the discovery cycle: kernel neighbours plus addresses
// seen in the latest capture tables, enriched and merged into the
// registry, with every touched record queued for persistence.
type Tracker struct {
	registry ports.DeviceRegistry
	queries  ports.CaptureQueries
	arp      *ARPTable
	enricher *Enricher
	sink     DeviceSink
	notifier ports.EventNotifier
	interval time.Duration

	afterCycle func(ctx context.Context)
	lastCycle  time.Time
	now        func() time.Time
}

// NewTracker wires the discovery cycle. Sink and notifier may be nil.
func NewTracker(reg ports.DeviceRegistry, queries ports.CaptureQueries, arp *ARPTable, enricher *Enricher, sink DeviceSink, notifier ports.EventNotifier, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Tracker{
		registry: reg,
		queries:  queries,
		arp:      arp,
		enricher: enricher,
		sink:     sink,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// OnCycleComplete registers a hook that runs after every discovery
// cycle. The scorer hangs off it so scores follow fresh data.
func (t *Tracker) OnCycleComplete(hook func(ctx context.Context)) {
	t.afterCycle = hook
}

// Run drives discovery cycles until the context ends. The first cycle
// starts immediately so the dashboard is not empty for a full interval.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		if n, err := t.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("device discovery cycle failed", "error", err)
		} else {
			slog.Debug("device discovery cycle complete", "devices", n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one discovery pass and returns how many devices it
// touched. Addresses come from ARP first (those carry MACs), then from
// capture-table traffic for hosts the kernel has no neighbour entry
// for.
func (t *Tracker) Cycle(ctx context.Context) (int, error) {
	now := t.now()
	since := t.lastCycle
	if since.IsZero() {
		since = now.Add(-t.interval)
	}

	entries, err := t.arp.Entries()
	if err != nil {
		slog.Warn("neighbour table unreadable", "error", err)
	}
	arpByIP := make(map[string]string, len(entries))
	for _, entry := range entries {
		arpByIP[entry.IP] = entry.MAC
	}

	localIPs, err := t.queries.DistinctLocalIPs(ctx, trafficIPLimit)
	if err != nil {
		return 0, err
	}

	ips := make([]string, 0, len(entries)+len(localIPs))
	for _, entry := range entries {
		ips = append(ips, entry.IP)
	}
	for _, ip := range localIPs {
		if _, ok := arpByIP[ip]; !ok {
			ips = append(ips, ip)
		}
	}

	touched := 0
	for _, ip := range ips {
		if ctx.Err() != nil {
			return touched, ctx.Err()
		}
		obs := domain.Device{
			IP:       ip,
			MAC:      arpByIP[ip],
			LastSeen: now,
		}
		t.enricher.Enrich(ctx, &obs, since)

		merged, isNew := t.registry.ProcessDevice(obs)
		if t.sink != nil {
			t.sink.Persist(merged)
		}
		if isNew {
			slog.Info("new device discovered",
				"ip", merged.IP,
				"mac", merged.MAC,
				"vendor", merged.Vendor,
				"category", merged.Category)
			if t.notifier != nil {
				t.notifier.NotifyDevice(merged)
			}
		}
		touched++
	}

	t.lastCycle = now
	if t.afterCycle != nil {
		t.afterCycle(ctx)
	}
	return touched, nil
}
