package geo

import (
	"net"

	"github.com/oschwald/maxminddb-golang"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// Resolver maps an IP address to a country code for device enrichment.
type Resolver interface {
	Country(ip string) string
	Close() error
}

// MaxMindResolver resolves countries from a local MaxMind database file.
type MaxMindResolver struct {
	db *maxminddb.Reader
}

// Open loads a MaxMind country database (GeoLite2-Country.mmdb works).
func Open(path string) (*MaxMindResolver, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMindResolver{db: db}, nil
}

// Country returns the ISO country code for an address, "Local" for
// private ranges, and "" when the address is unknown or unparseable.
func (r *MaxMindResolver) Country(ip string) string {
	if domain.IsLocalIP(ip) {
		return "Local"
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}

	var record struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := r.db.Lookup(parsed, &record); err != nil {
		return ""
	}
	return record.Country.ISOCode
}

// Close releases the database handle.
func (r *MaxMindResolver) Close() error {
	return r.db.Close()
}

// NoopResolver is used when no database is configured.
type NoopResolver struct{}

func (NoopResolver) Country(ip string) string {
	if domain.IsLocalIP(ip) {
		return "Local"
	}
	return ""
}

func (NoopResolver) Close() error { return nil }
