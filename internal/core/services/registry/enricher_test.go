package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jarvis-lab/netguard/internal/adapters/fingerprint"
	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// Stubs shared by the enricher and tracker tests.

type stubVendors struct {
	byOUI map[string]string
}

func (s *stubVendors) LookupVendor(ctx context.Context, mac fingerprint.MACAddress) (string, error) {
	if vendor, ok := s.byOUI[mac.OUI()]; ok {
		return vendor, nil
	}
	return "Unknown", fingerprint.ErrVendorNotFound
}

type stubHostResolver struct {
	names map[string][]string
	err   error
}

func (s *stubHostResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.names[addr], nil
}

type stubGeo struct {
	countries map[string]string
}

func (s *stubGeo) Country(ip string) string {
	if domain.IsLocalIP(ip) {
		return "Local"
	}
	return s.countries[ip]
}

func (s *stubGeo) Close() error { return nil }

type stubQueries struct {
	localIPs    []string
	localIPsErr error
	traffic     map[string]domain.TrafficSummary
	talks       map[string][]domain.RemoteTalk
}

func (s *stubQueries) DistinctLocalIPs(ctx context.Context, limit int) ([]string, error) {
	return s.localIPs, s.localIPsErr
}

func (s *stubQueries) DeviceTraffic(ctx context.Context, deviceIP string, since time.Time) (domain.TrafficSummary, error) {
	return s.traffic[deviceIP], nil
}

func (s *stubQueries) RemoteTalks(ctx context.Context, deviceIP string, since time.Time, limit int) ([]domain.RemoteTalk, error) {
	return s.talks[deviceIP], nil
}

func (s *stubQueries) DistinctPortCounts(ctx context.Context, since time.Time) ([]domain.PortCount, error) {
	return nil, nil
}

func (s *stubQueries) FailedAuthCounts(ctx context.Context, since time.Time) ([]domain.AuthFailCount, error) {
	return nil, nil
}

func (s *stubQueries) OutboundBytes(ctx context.Context, since time.Time) ([]domain.ByteCount, error) {
	return nil, nil
}

func (s *stubQueries) BeaconCounts(ctx context.Context, since time.Time) ([]domain.BeaconCount, error) {
	return nil, nil
}

func (s *stubQueries) LongDNSLabels(ctx context.Context, since time.Time, minLabelLen int) ([]domain.DNSLabel, error) {
	return nil, nil
}

func (s *stubQueries) DNSQueryCounts(ctx context.Context, since time.Time) ([]domain.QueryCount, error) {
	return nil, nil
}

func (s *stubQueries) ExternalSuspiciousConnCount(ctx context.Context, deviceIP string, since time.Time) (int, error) {
	return 0, nil
}

func (s *stubQueries) HTTPPortCounts(ctx context.Context, since time.Time) (map[string]domain.TrafficSummary, error) {
	return nil, nil
}

func TestEnrichFillsEverything(t *testing.T) {
	enricher := NewEnricher(
		&stubVendors{byOUI: map[string]string{"B8:27:EB": "Raspberry Pi Foundation"}},
		&stubHostResolver{names: map[string][]string{"192.168.1.50": {"raspberrypi.lan."}}},
		&stubGeo{countries: map[string]string{"93.184.216.34": "US"}},
		&stubQueries{
			traffic: map[string]domain.TrafficSummary{
				"192.168.1.50": {Packets: 1200, Bytes: 64000},
			},
			talks: map[string][]domain.RemoteTalk{
				"192.168.1.50": {
					{RemoteIP: "192.168.1.1", External: false},
					{RemoteIP: "93.184.216.34", RemotePort: "443", External: true},
				},
			},
		},
	)

	dev := domain.Device{IP: "192.168.1.50", MAC: "B8:27:EB:12:34:56"}
	enricher.Enrich(context.Background(), &dev, time.Now().Add(-30*time.Second))

	assert.Equal(t, "raspberrypi.lan", dev.Hostname, "trailing dot is stripped")
	assert.Equal(t, "Raspberry Pi Foundation", dev.Vendor)
	assert.Equal(t, domain.TypeIoT, dev.Type)
	assert.Equal(t, domain.CategoryRaspberryPi, dev.Category)
	assert.Equal(t, int64(1200), dev.TotalPackets)
	assert.Equal(t, int64(64000), dev.TotalBytes)
	assert.Equal(t, "US", dev.GeoCountry, "local counterparts are skipped")
}

func TestEnrichDNSFailureLeavesHostnameEmpty(t *testing.T) {
	enricher := NewEnricher(
		&stubVendors{},
		&stubHostResolver{err: errors.New("nxdomain")},
		nil,
		&stubQueries{},
	)

	dev := domain.Device{IP: "192.168.1.99", MAC: "AA:BB:CC:DD:EE:FF"}
	enricher.Enrich(context.Background(), &dev, time.Now())

	assert.Empty(t, dev.Hostname)
	assert.Equal(t, "Unknown", dev.Vendor)
	assert.Equal(t, domain.TypeUnknown, dev.Type)
}

func TestEnrichKeepsProvidedHostname(t *testing.T) {
	resolver := &stubHostResolver{names: map[string][]string{"192.168.1.10": {"other-name."}}}
	enricher := NewEnricher(&stubVendors{}, resolver, nil, &stubQueries{})

	dev := domain.Device{IP: "192.168.1.10", Hostname: "known-host"}
	enricher.Enrich(context.Background(), &dev, time.Now())

	assert.Equal(t, "known-host", dev.Hostname)
}

func TestEnrichInvalidMAC(t *testing.T) {
	enricher := NewEnricher(&stubVendors{}, nil, nil, &stubQueries{})

	dev := domain.Device{IP: "192.168.1.10", MAC: "not-a-mac"}
	enricher.Enrich(context.Background(), &dev, time.Now())

	assert.Equal(t, "Unknown", dev.Vendor)
}

func TestEnrichNoExternalTalks(t *testing.T) {
	enricher := NewEnricher(
		&stubVendors{},
		nil,
		&stubGeo{},
		&stubQueries{
			talks: map[string][]domain.RemoteTalk{
				"192.168.1.20": {{RemoteIP: "192.168.1.1", External: false}},
			},
		},
	)

	dev := domain.Device{IP: "192.168.1.20"}
	enricher.Enrich(context.Background(), &dev, time.Now())

	assert.Empty(t, dev.GeoCountry)
}
