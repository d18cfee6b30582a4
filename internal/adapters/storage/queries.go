package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// The detection queries below run against the LATEST run table of each
// relevant tool. tcpdump and tshark see the same wire, so counts from
// the two are merged by maximum, never summed, to avoid double counting.

// latestPacketTables returns the newest tcpdump and tshark run tables
// that exist right now.
func (a *SQLiteAdapter) latestPacketTables(ctx context.Context) ([]string, error) {
	var tables []string
	for _, tool := range []string{domain.ToolTcpdump, domain.ToolTshark} {
		name, err := a.LatestTable(ctx, tool)
		if err != nil {
			return nil, err
		}
		if name != "" {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

func sinceArg(since time.Time) string {
	return since.Format(domain.TimestampLayout)
}

// lengthColumn names the byte-length column of a packet table. The
// ring-buffer schema calls it frame_length, the live-window schema length.
func lengthColumn(table string) string {
	if strings.HasPrefix(table, domain.ToolTcpdump+"_") {
		return "frame_length"
	}
	return "length"
}

// DistinctLocalIPs lists local addresses seen in the latest packet
// captures, sources and destinations both.
func (a *SQLiteAdapter) DistinctLocalIPs(ctx context.Context, limit int) ([]string, error) {
	tables, err := a.latestPacketTables(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}

	seen := make(map[string]bool)
	var out []string
	for _, table := range tables {
		query := fmt.Sprintf(
			"SELECT DISTINCT src_ip FROM %s UNION SELECT DISTINCT dest_ip FROM %s", table, table)
		rows, err := a.raw.QueryContext(ctx, query)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var ip string
			if rows.Scan(&ip) != nil {
				continue
			}
			if ip == "" || seen[ip] || !domain.IsLocalIP(ip) {
				continue
			}
			seen[ip] = true
			out = append(out, ip)
			if len(out) >= limit {
				break
			}
		}
		rows.Close()
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// DistinctPortCounts counts distinct destination ports probed per source.
// Only unanswered SYNs count: rows with the ACK bit set are established
// traffic, not scanning.
func (a *SQLiteAdapter) DistinctPortCounts(ctx context.Context, since time.Time) ([]domain.PortCount, error) {
	tables, err := a.latestPacketTables(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[string]int)
	for _, table := range tables {
		query := fmt.Sprintf(`SELECT src_ip, COUNT(DISTINCT dest_port) AS ports
			FROM %s WHERE timestamp >= ? AND src_ip != ''
			AND tcp_syn = 1 AND tcp_ack = 0
			GROUP BY src_ip`, table)
		rows, err := a.raw.QueryContext(ctx, query, sinceArg(since))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var src string
			var n int
			if rows.Scan(&src, &n) == nil && n > best[src] {
				best[src] = n
			}
		}
		rows.Close()
	}

	out := make([]domain.PortCount, 0, len(best))
	for src, n := range best {
		out = append(out, domain.PortCount{SourceIP: src, PortCount: n})
	}
	return out, nil
}

// FailedAuthCounts counts failed authentication events per source from
// the latest suricata alert table. Matching is by signature and category
// substrings; suricata rulesets vary in wording.
func (a *SQLiteAdapter) FailedAuthCounts(ctx context.Context, since time.Time) ([]domain.AuthFailCount, error) {
	table, err := a.LatestTable(ctx, domain.ToolSuricata+"_alerts")
	if err != nil {
		return nil, err
	}
	if table == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT src_ip, COUNT(*) AS failures FROM %s
		WHERE timestamp >= ? AND src_ip != ''
		AND (lower(alert_signature) LIKE '%%brute%%'
			OR lower(alert_signature) LIKE '%%authentication fail%%'
			OR lower(alert_signature) LIKE '%%failed login%%'
			OR lower(alert_category) LIKE '%%brute%%')
		GROUP BY src_ip`, table)
	rows, err := a.raw.QueryContext(ctx, query, sinceArg(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuthFailCount
	for rows.Next() {
		var c domain.AuthFailCount
		if rows.Scan(&c.SourceIP, &c.Failures) == nil {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

// OutboundBytes totals bytes sent by local sources to external hosts.
func (a *SQLiteAdapter) OutboundBytes(ctx context.Context, since time.Time) ([]domain.ByteCount, error) {
	tables, err := a.latestPacketTables(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[string]int64)
	for _, table := range tables {
		perTool := make(map[string]int64)
		query := fmt.Sprintf(`SELECT src_ip, dest_ip, COALESCE(SUM(%s), 0) AS bytes
			FROM %s WHERE timestamp >= ? AND src_ip != '' AND dest_ip != ''
			GROUP BY src_ip, dest_ip`, lengthColumn(table), table)
		rows, err := a.raw.QueryContext(ctx, query, sinceArg(since))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var src, dst string
			var bytes int64
			if rows.Scan(&src, &dst, &bytes) != nil {
				continue
			}
			if domain.IsLocalIP(src) && domain.IsExternalIP(dst) {
				perTool[src] += bytes
			}
		}
		rows.Close()
		for src, bytes := range perTool {
			if bytes > best[src] {
				best[src] = bytes
			}
		}
	}

	out := make([]domain.ByteCount, 0, len(best))
	for src, bytes := range best {
		out = append(out, domain.ByteCount{SourceIP: src, TotalBytes: bytes})
	}
	return out, nil
}

// BeaconCounts counts repeated connections from local sources to single
// external endpoints.
func (a *SQLiteAdapter) BeaconCounts(ctx context.Context, since time.Time) ([]domain.BeaconCount, error) {
	tables, err := a.latestPacketTables(ctx)
	if err != nil {
		return nil, err
	}

	type key struct{ src, dst, port string }
	best := make(map[key]int)
	for _, table := range tables {
		query := fmt.Sprintf(`SELECT src_ip, dest_ip, dest_port, COUNT(*) AS conns
			FROM %s WHERE timestamp >= ? AND src_ip != '' AND dest_ip != ''
			GROUP BY src_ip, dest_ip, dest_port`, table)
		rows, err := a.raw.QueryContext(ctx, query, sinceArg(since))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var k key
			var n int
			if rows.Scan(&k.src, &k.dst, &k.port, &n) != nil {
				continue
			}
			if domain.IsLocalIP(k.src) && domain.IsExternalIP(k.dst) && n > best[k] {
				best[k] = n
			}
		}
		rows.Close()
	}

	out := make([]domain.BeaconCount, 0, len(best))
	for k, n := range best {
		out = append(out, domain.BeaconCount{SourceIP: k.src, DestIP: k.dst, DestPort: k.port, Connections: n})
	}
	return out, nil
}

// LongDNSLabels returns DNS queries whose longest label reaches the
// threshold, from the latest suricata dns events.
func (a *SQLiteAdapter) LongDNSLabels(ctx context.Context, since time.Time, minLabelLen int) ([]domain.DNSLabel, error) {
	table, err := a.LatestTable(ctx, domain.ToolSuricata+"_dns")
	if err != nil {
		return nil, err
	}
	if table == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT src_ip, dns_rrname FROM %s
		WHERE timestamp >= ? AND dns_type = 'query' AND dns_rrname != ''`, table)
	rows, err := a.raw.QueryContext(ctx, query, sinceArg(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DNSLabel
	for rows.Next() {
		var src, name string
		if rows.Scan(&src, &name) != nil {
			continue
		}
		longest := 0
		for _, label := range strings.Split(name, ".") {
			if len(label) > longest {
				longest = len(label)
			}
		}
		if longest >= minLabelLen {
			out = append(out, domain.DNSLabel{SourceIP: src, Query: name, LabelLen: longest})
		}
	}
	return out, rows.Err()
}

// DNSQueryCounts counts DNS queries per source from the latest suricata
// dns table.
func (a *SQLiteAdapter) DNSQueryCounts(ctx context.Context, since time.Time) ([]domain.QueryCount, error) {
	table, err := a.LatestTable(ctx, domain.ToolSuricata+"_dns")
	if err != nil {
		return nil, err
	}
	if table == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT src_ip, COUNT(*) AS queries FROM %s
		WHERE timestamp >= ? AND dns_type = 'query' AND src_ip != ''
		GROUP BY src_ip`, table)
	rows, err := a.raw.QueryContext(ctx, query, sinceArg(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.QueryCount
	for rows.Next() {
		var c domain.QueryCount
		if rows.Scan(&c.SourceIP, &c.Queries) == nil {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

// commonServicePorts are destinations not counted as suspicious.
var commonServicePorts = map[int]bool{
	80: true, 443: true, 53: true, 123: true,
	8080: true, 8443: true,
}

// ExternalSuspiciousConnCount counts a device's connections to external
// endpoints on uncommon ports.
func (a *SQLiteAdapter) ExternalSuspiciousConnCount(ctx context.Context, deviceIP string, since time.Time) (int, error) {
	tables, err := a.latestPacketTables(ctx)
	if err != nil {
		return 0, err
	}

	best := 0
	for _, table := range tables {
		query := fmt.Sprintf(`SELECT dest_ip, dest_port, COUNT(*) AS conns
			FROM %s WHERE timestamp >= ? AND src_ip = ? AND dest_ip != ''
			GROUP BY dest_ip, dest_port`, table)
		rows, err := a.raw.QueryContext(ctx, query, sinceArg(since), deviceIP)
		if err != nil {
			return 0, err
		}
		count := 0
		for rows.Next() {
			var dst string
			var port, n int
			if rows.Scan(&dst, &port, &n) != nil {
				continue
			}
			if domain.IsExternalIP(dst) && !commonServicePorts[port] {
				count += n
			}
		}
		rows.Close()
		if count > best {
			best = count
		}
	}
	return best, nil
}

// DeviceTraffic aggregates packet and byte totals for one device.
func (a *SQLiteAdapter) DeviceTraffic(ctx context.Context, deviceIP string, since time.Time) (domain.TrafficSummary, error) {
	tables, err := a.latestPacketTables(ctx)
	if err != nil {
		return domain.TrafficSummary{}, err
	}

	var best domain.TrafficSummary
	for _, table := range tables {
		query := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(%s), 0)
			FROM %s WHERE timestamp >= ? AND (src_ip = ? OR dest_ip = ?)`, lengthColumn(table), table)
		var packets, bytes int64
		err := a.raw.QueryRowContext(ctx, query, sinceArg(since), deviceIP, deviceIP).
			Scan(&packets, &bytes)
		if err != nil {
			return domain.TrafficSummary{}, err
		}
		if packets > best.Packets {
			best.Packets = packets
			best.Bytes = bytes
		}
	}
	return best, nil
}

// HTTPPortCounts returns per-source web connection counts: HTTPCount is
// plaintext port 80 traffic, TotalCount covers ports 80 and 443 together.
func (a *SQLiteAdapter) HTTPPortCounts(ctx context.Context, since time.Time) (map[string]domain.TrafficSummary, error) {
	tables, err := a.latestPacketTables(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.TrafficSummary)
	for _, table := range tables {
		query := fmt.Sprintf(`SELECT src_ip,
			SUM(CASE WHEN dest_port IN (80, 443) THEN 1 ELSE 0 END) AS total,
			SUM(CASE WHEN dest_port = 80 THEN 1 ELSE 0 END) AS http
			FROM %s WHERE timestamp >= ? AND src_ip != ''
			GROUP BY src_ip`, table)
		rows, err := a.raw.QueryContext(ctx, query, sinceArg(since))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var src string
			var total, http int
			if rows.Scan(&src, &total, &http) != nil {
				continue
			}
			if cur, ok := out[src]; !ok || total > cur.TotalCount {
				out[src] = domain.TrafficSummary{TotalCount: total, HTTPCount: http}
			}
		}
		rows.Close()
	}
	return out, nil
}

// RemoteTalks lists the remote endpoints one device talked to. The live
// tshark window is checked first, ring-buffer tables serve as fallback.
func (a *SQLiteAdapter) RemoteTalks(ctx context.Context, deviceIP string, since time.Time, limit int) ([]domain.RemoteTalk, error) {
	table, err := a.LatestTable(ctx, domain.ToolTshark)
	if err != nil {
		return nil, err
	}
	lengthCol := "length"
	if table == "" {
		if table, err = a.LatestTable(ctx, domain.ToolTcpdump); err != nil {
			return nil, err
		}
		lengthCol = "frame_length"
	}
	if table == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT dest_ip, dest_port, protocol,
			COUNT(*) AS packets, COALESCE(SUM(%s), 0) AS bytes
		FROM %s WHERE timestamp >= ? AND src_ip = ? AND dest_ip != ''
		GROUP BY dest_ip, dest_port, protocol
		ORDER BY packets DESC LIMIT ?`, lengthCol, table)
	rows, err := a.raw.QueryContext(ctx, query, sinceArg(since), deviceIP, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RemoteTalk
	for rows.Next() {
		var talk domain.RemoteTalk
		if rows.Scan(&talk.RemoteIP, &talk.RemotePort, &talk.Protocol, &talk.Packets, &talk.Bytes) != nil {
			continue
		}
		talk.External = domain.IsExternalIP(talk.RemoteIP)
		out = append(out, talk)
	}
	return out, rows.Err()
}
