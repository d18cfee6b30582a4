package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/dnscache"

	"github.com/jarvis-lab/netguard/internal/adapters/fingerprint"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/geo"
)

// Reverse lookups on an unresponsive resolver would stall the whole
// cycle, so each one gets a short leash.
const dnsTimeout = 2 * time.Second

// HostResolver is the reverse-DNS slice of dnscache.Resolver the
// enricher uses.
type HostResolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// VendorLookup is the slice of the fingerprint repository the enricher
// uses.
type VendorLookup interface {
	LookupVendor(ctx context.Context, mac fingerprint.MACAddress) (string, error)
}

// NewCachedResolver builds the shared reverse-DNS resolver and starts
// its refresh loop. Refresh(true) drops entries nothing asked about
// since the previous pass, so the cache follows the active device set.
func NewCachedResolver(ctx context.Context, refreshEvery time.Duration) *dnscache.Resolver {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(refreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				resolver.Refresh(true)
			}
		}
	}()
	return resolver
}

// Enricher fills hostname, vendor, classification, traffic counters,
// and geo country on raw sightings before they enter the registry.
type Enricher struct {
	vendors  VendorLookup
	resolver HostResolver
	geo      geo.Resolver
	queries  ports.CaptureQueries
}

// NewEnricher wires the enrichment sources. Any of them may be nil;
// the corresponding field is then left for a later cycle.
func NewEnricher(vendors VendorLookup, resolver HostResolver, geoResolver geo.Resolver, queries ports.CaptureQueries) *Enricher {
	return &Enricher{vendors: vendors, resolver: resolver, geo: geoResolver, queries: queries}
}

// Enrich mutates the observation in place. Lookups are best effort; a
// failed one leaves its field empty rather than failing the cycle.
func (e *Enricher) Enrich(ctx context.Context, d *domain.Device, since time.Time) {
	if d.Hostname == "" && e.resolver != nil {
		d.Hostname = e.reverseDNS(ctx, d.IP)
	}
	if d.MAC != "" && e.vendors != nil {
		d.Vendor = e.vendorFor(ctx, d.MAC)
	}
	d.Type, d.Category = Categorize(d.Hostname, d.Vendor)

	if e.queries != nil {
		if traffic, err := e.queries.DeviceTraffic(ctx, d.IP, since); err == nil {
			d.TotalPackets = traffic.Packets
			d.TotalBytes = traffic.Bytes
		}
		if e.geo != nil {
			d.GeoCountry = e.remoteCountry(ctx, d.IP, since)
		}
	}
}

func (e *Enricher) reverseDNS(ctx context.Context, ip string) string {
	if ip == "" {
		return ""
	}
	lookupCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()
	names, err := e.resolver.LookupAddr(lookupCtx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

func (e *Enricher) vendorFor(ctx context.Context, rawMAC string) string {
	mac, err := fingerprint.ParseMAC(rawMAC)
	if err != nil {
		return "Unknown"
	}
	vendor, err := e.vendors.LookupVendor(ctx, mac)
	if err != nil && !errors.Is(err, fingerprint.ErrVendorNotFound) {
		slog.Debug("vendor lookup failed", "mac", rawMAC, "error", err)
	}
	if vendor == "" {
		return "Unknown"
	}
	return vendor
}

// remoteCountry resolves the country of the device's most recent
// external counterpart. Private-range counterparts short-circuit to
// "Local" inside the geo resolver and are skipped here.
func (e *Enricher) remoteCountry(ctx context.Context, ip string, since time.Time) string {
	talks, err := e.queries.RemoteTalks(ctx, ip, since, 5)
	if err != nil {
		return ""
	}
	for _, talk := range talks {
		if !talk.External {
			continue
		}
		if country := e.geo.Country(talk.RemoteIP); country != "" && country != "Local" {
			return country
		}
	}
	return ""
}
