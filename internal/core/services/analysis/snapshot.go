// Package analysis condenses recent capture history into a bounded snapshot,
// ships it through a chain of language model providers, and persists the
// structured verdict. The snapshot caps are deliberate: the prompt has to
// stay inside model context limits no matter how busy the network gets.
package analysis

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// ToolSection is the generic per-tool sample: which run table it came from,
// how many rows fed the aggregates, and a few raw rows for the model.
type ToolSection struct {
	Table    string            `json:"table"`
	RowCount int               `json:"rows_analyzed"`
	Samples  []domain.TableRow `json:"samples"`
}

// FingerprintSection adds p0f's OS view on top of the raw sample.
type FingerprintSection struct {
	ToolSection
	UniqueIPs      int            `json:"unique_ips"`
	OSDistribution map[string]int `json:"os_distribution"`
}

// ProtocolSection adds tshark's protocol distribution.
type ProtocolSection struct {
	ToolSection
	Protocols map[string]int `json:"protocol_distribution"`
}

// HTTPSection adds httpry's method counts and busiest hosts.
type HTTPSection struct {
	ToolSection
	Methods  map[string]int `json:"method_counts"`
	TopHosts []HostCount    `json:"top_hosts"`
}

// HostCount is one host in the HTTP top list.
type HostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// SuricataSection groups the IDS event categories worth showing the model.
type SuricataSection struct {
	Alerts *ToolSection `json:"alerts,omitempty"`
	Flow   *ToolSection `json:"flow,omitempty"`
	HTTP   *ToolSection `json:"http,omitempty"`
	DNS    *ToolSection `json:"dns,omitempty"`
	TLS    *ToolSection `json:"tls,omitempty"`
}

// IoTSummary lists the IoT devices active in the last hour.
type IoTSummary struct {
	Devices    []IoTEntry     `json:"devices"`
	Categories map[string]int `json:"category_counts"`
}

// IoTEntry is one IoT device as presented to the model.
type IoTEntry struct {
	IP       string `json:"ip"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Score    int    `json:"security_score"`
}

// NetworkSummary closes the snapshot with headline numbers.
type NetworkSummary struct {
	ActiveDevices   int `json:"active_devices"`
	IoTDevices      int `json:"iot_devices"`
	UniqueEndpoints int `json:"unique_endpoints"`
	ToolsReporting  int `json:"tools_reporting"`
	RowsAnalyzed    int `json:"rows_analyzed"`
}

// Snapshot is the bounded view of recent capture state fed to the model.
// Nil sections mean the tool has produced nothing yet.
type Snapshot struct {
	GeneratedAt   time.Time
	Fingerprints  *FingerprintSection
	Tshark        *ProtocolSection
	Ngrep         *ToolSection
	Httpry        *HTTPSection
	Tcpdump       *ToolSection
	Argus         *ToolSection
	Netsniff      *ToolSection
	Iftop         *ToolSection
	Nethogs       *ToolSection
	Suricata      *SuricataSection
	UniqueDevices []string
	IoT           *IoTSummary
	IoTSecurity   []domain.Vulnerability
	Summary       NetworkSummary
}

// DataPoints reports how many capture rows fed this snapshot. Zero means
// there is nothing worth sending to a model.
func (s *Snapshot) DataPoints() int {
	return s.Summary.RowsAnalyzed
}

func (s *Snapshot) sectionList() []*ToolSection {
	var out []*ToolSection
	if s.Fingerprints != nil {
		out = append(out, &s.Fingerprints.ToolSection)
	}
	if s.Tshark != nil {
		out = append(out, &s.Tshark.ToolSection)
	}
	if s.Ngrep != nil {
		out = append(out, s.Ngrep)
	}
	if s.Httpry != nil {
		out = append(out, &s.Httpry.ToolSection)
	}
	for _, sec := range []*ToolSection{s.Tcpdump, s.Argus, s.Netsniff, s.Iftop, s.Nethogs} {
		if sec != nil {
			out = append(out, sec)
		}
	}
	if s.Suricata != nil {
		for _, sec := range []*ToolSection{s.Suricata.Alerts, s.Suricata.Flow, s.Suricata.HTTP, s.Suricata.DNS, s.Suricata.TLS} {
			if sec != nil {
				out = append(out, sec)
			}
		}
	}
	return out
}

// Builder assembles snapshots from the newest run table of every tool.
type Builder struct {
	captures ports.CaptureStore
	registry ports.DeviceRegistry
	vulns    ports.VulnerabilityStore
	now      func() time.Time
}

// NewBuilder wires a snapshot builder over the capture store, the device
// registry, and the vulnerability store.
func NewBuilder(captures ports.CaptureStore, registry ports.DeviceRegistry, vulns ports.VulnerabilityStore) *Builder {
	return &Builder{captures: captures, registry: registry, vulns: vulns, now: time.Now}
}

// Build reads the newest run table per tool and reduces it to the capped
// snapshot. A tool whose table cannot be read is skipped with a warning;
// one broken collector must not block analysis of the rest.
func (b *Builder) Build(ctx context.Context) *Snapshot {
	snap := &Snapshot{GeneratedAt: b.now()}
	endpoints := make(map[string]struct{})

	if sec, rows := b.section(ctx, domain.ToolP0f, 50, 10); sec != nil {
		fp := &FingerprintSection{ToolSection: *sec, OSDistribution: map[string]int{}}
		ips := make(map[string]struct{})
		for _, row := range rows {
			if ip := rowString(row, "src_ip"); ip != "" {
				ips[ip] = struct{}{}
			}
			if osName := rowString(row, "os_name"); osName != "" && osName != "???" {
				fp.OSDistribution[osName]++
			}
			collectEndpoints(endpoints, row)
		}
		fp.UniqueIPs = len(ips)
		snap.Fingerprints = fp
	}

	if sec, rows := b.section(ctx, domain.ToolTshark, 100, 5); sec != nil {
		ps := &ProtocolSection{ToolSection: *sec, Protocols: map[string]int{}}
		for _, row := range rows {
			if proto := rowString(row, "protocol"); proto != "" {
				ps.Protocols[proto]++
			}
			collectEndpoints(endpoints, row)
		}
		snap.Tshark = ps
	}

	snap.Ngrep, _ = b.section(ctx, domain.ToolNgrep, 100, 10)

	if sec, rows := b.section(ctx, domain.ToolHttpry, 100, 5); sec != nil {
		hs := &HTTPSection{ToolSection: *sec, Methods: map[string]int{}}
		hosts := map[string]int{}
		for _, row := range rows {
			if method := rowString(row, "method"); method != "" {
				hs.Methods[method]++
			}
			if host := rowString(row, "host"); host != "" {
				hosts[host]++
			}
		}
		hs.TopHosts = topHosts(hosts, 10)
		snap.Httpry = hs
	}

	if sec, rows := b.section(ctx, domain.ToolTcpdump, 200, 10); sec != nil {
		for _, row := range rows {
			collectEndpoints(endpoints, row)
		}
		snap.Tcpdump = sec
	}

	snap.Argus, _ = b.section(ctx, domain.ToolArgus, 100, 10)
	snap.Netsniff, _ = b.section(ctx, domain.ToolNetsniff, 100, 10)
	snap.Iftop, _ = b.section(ctx, domain.ToolIftop, 50, 10)
	snap.Nethogs, _ = b.section(ctx, domain.ToolNethogs, 100, 10)

	suri := &SuricataSection{}
	suri.Alerts, _ = b.section(ctx, domain.ToolSuricata+"_alerts", 50, 10)
	suri.Flow, _ = b.section(ctx, domain.ToolSuricata+"_flow", 50, 5)
	suri.HTTP, _ = b.section(ctx, domain.ToolSuricata+"_http", 20, 5)
	suri.DNS, _ = b.section(ctx, domain.ToolSuricata+"_dns", 20, 5)
	suri.TLS, _ = b.section(ctx, domain.ToolSuricata+"_tls", 20, 5)
	if suri.Alerts != nil || suri.Flow != nil || suri.HTTP != nil || suri.DNS != nil || suri.TLS != nil {
		snap.Suricata = suri
	}

	ips := make([]string, 0, len(endpoints))
	for ip := range endpoints {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	snap.UniqueDevices = ips

	snap.IoT = b.iotSummary(snap.GeneratedAt)
	snap.IoTSecurity = b.openFindings(ctx)

	tools := 0
	for _, present := range []bool{
		snap.Fingerprints != nil, snap.Tshark != nil, snap.Ngrep != nil,
		snap.Httpry != nil, snap.Tcpdump != nil, snap.Argus != nil,
		snap.Netsniff != nil, snap.Iftop != nil, snap.Nethogs != nil,
		snap.Suricata != nil,
	} {
		if present {
			tools++
		}
	}
	rowsTotal := 0
	for _, sec := range snap.sectionList() {
		rowsTotal += sec.RowCount
	}
	iotCount := 0
	if snap.IoT != nil {
		iotCount = len(snap.IoT.Devices)
	}
	snap.Summary = NetworkSummary{
		ActiveDevices:   b.registry.GetActiveCount(),
		IoTDevices:      iotCount,
		UniqueEndpoints: len(snap.UniqueDevices),
		ToolsReporting:  tools,
		RowsAnalyzed:    rowsTotal,
	}
	return snap
}

// section reads up to scan rows from the newest run table of a prefix and
// keeps the first sample rows verbatim. Returns nil when the tool has no
// table or no rows yet.
func (b *Builder) section(ctx context.Context, prefix string, scan, sample int) (*ToolSection, []domain.TableRow) {
	table, err := b.captures.LatestTable(ctx, prefix)
	if err != nil {
		slog.Warn("snapshot: latest table lookup failed", "tool", prefix, "error", err)
		return nil, nil
	}
	if table == "" {
		return nil, nil
	}
	rows, err := b.captures.TableRows(ctx, table, scan)
	if err != nil {
		slog.Warn("snapshot: table read failed", "table", table, "error", err)
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if sample > len(rows) {
		sample = len(rows)
	}
	return &ToolSection{Table: table, RowCount: len(rows), Samples: rows[:sample]}, rows
}

// iotSummary lists IoT devices seen in the last hour, newest first, at most
// twenty of them.
func (b *Builder) iotSummary(at time.Time) *IoTSummary {
	cutoff := at.Add(-time.Hour)
	var recent []domain.Device
	for _, d := range b.registry.GetAllDevices() {
		if d.Type != domain.TypeIoT || d.LastSeen.Before(cutoff) {
			continue
		}
		recent = append(recent, d)
	}
	if len(recent) == 0 {
		return nil
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].LastSeen.After(recent[j].LastSeen) })
	if len(recent) > 20 {
		recent = recent[:20]
	}

	sum := &IoTSummary{Categories: map[string]int{}}
	for _, d := range recent {
		cat := d.Category
		if cat == "" {
			cat = "uncategorized"
		}
		sum.Categories[cat]++
		sum.Devices = append(sum.Devices, IoTEntry{
			IP:       d.IP,
			Name:     d.DisplayName(),
			Category: cat,
			Score:    d.SecurityScore,
		})
	}
	return sum
}

// openFindings returns the ten most severe unresolved scanner findings.
func (b *Builder) openFindings(ctx context.Context) []domain.Vulnerability {
	findings, err := b.vulns.ListVulnerabilities(ctx, false, 100)
	if err != nil {
		slog.Warn("snapshot: vulnerability list failed", "error", err)
		return nil
	}
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})
	if len(findings) > 10 {
		findings = findings[:10]
	}
	return findings
}

func rowString(row domain.TableRow, key string) string {
	if s, ok := row[key].(string); ok {
		return s
	}
	return ""
}

// collectEndpoints records src/dest addresses, skipping loopback traffic
// the monitor host generates against itself.
func collectEndpoints(set map[string]struct{}, row domain.TableRow) {
	for _, key := range [...]string{"src_ip", "dest_ip"} {
		ip := rowString(row, key)
		if ip == "" || strings.HasPrefix(ip, "127.") || ip == "::1" {
			continue
		}
		set[ip] = struct{}{}
	}
}

// topHosts ranks hosts by request count, ties broken alphabetically so the
// prompt stays stable across identical captures.
func topHosts(counts map[string]int, n int) []HostCount {
	out := make([]HostCount, 0, len(counts))
	for host, c := range counts {
		out = append(out, HostCount{Host: host, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Host < out[j].Host
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
