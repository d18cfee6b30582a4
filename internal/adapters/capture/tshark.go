package capture

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/geo"
)

const captureWindow = 30 * time.Second

// tsharkFields is the live-window decode list: transport, HTTP, DNS
// and TLS metadata per frame.
var tsharkFields = []string{
	"frame.number", "frame.time", "frame.len",
	"ip.src", "ip.dst",
	"tcp.srcport", "tcp.dstport", "udp.srcport", "udp.dstport",
	"frame.protocols",
	"tcp.flags", "tcp.flags.syn", "tcp.flags.ack", "tcp.flags.fin", "tcp.flags.reset",
	"ip.ttl", "tcp.window_size_value",
	"http.host", "http.request.uri", "http.request.method",
	"http.user_agent", "http.response.code",
	"dns.qry.name", "dns.qry.type", "dns.a",
	"tls.handshake.type", "tls.handshake.extensions_server_name",
}

// TsharkCollector runs one bounded capture per cycle: record a 30
// second window to a temporary pcap, decode it with geo enrichment,
// store the frames, delete the pcap.
type TsharkCollector struct {
	store      ports.CaptureStore
	resolver   geo.Resolver
	iface      string
	captureDir string
	now        func() time.Time
}

// NewTsharkCollector creates the live-window collector.
func NewTsharkCollector(store ports.CaptureStore, resolver geo.Resolver, iface, captureDir string) *TsharkCollector {
	return &TsharkCollector{
		store:      store,
		resolver:   resolver,
		iface:      iface,
		captureDir: captureDir,
		now:        time.Now,
	}
}

func (c *TsharkCollector) Tool() string            { return domain.ToolTshark }
func (c *TsharkCollector) Interval() time.Duration { return 30 * time.Second }

func (c *TsharkCollector) Collect(ctx context.Context) (int, error) {
	started := c.now()
	pcapPath := filepath.Join(c.captureDir,
		"capture_"+started.Format(domain.RunTableLayout)+".pcap")
	defer os.Remove(pcapPath)

	_, err := runCommand(ctx, captureWindow+10*time.Second, "tshark",
		"-i", c.iface, "-a", "duration:30", "-w", pcapPath, "-q")
	if err != nil {
		return 0, err
	}

	packets, err := readPCAPJSON(ctx, pcapPath, tsharkFields)
	if err != nil {
		return 0, err
	}
	records := parseTsharkPackets(packets, c.now())
	if len(records) > maxRowsPerCycle {
		slog.Info("row ceiling reached, truncating window",
			"tool", c.Tool(), "frames", len(records))
		records = records[:maxRowsPerCycle]
	}
	for i := range records {
		c.enrich(&records[i])
	}

	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	table, err := storeRows(ctx, c.store, domain.TsharkTableSpec(), rows, started)
	if err != nil {
		return 0, err
	}
	if table != "" {
		slog.Info("stored capture window", "tool", c.Tool(), "table", table, "rows", len(rows))
	}
	return len(rows), nil
}

func (c *TsharkCollector) enrich(rec *domain.TsharkRecord) {
	if rec.DestIP == "" || c.resolver == nil {
		return
	}
	rec.DestCountry = c.resolver.Country(rec.DestIP)
	if rec.DestCountry == "Local" {
		rec.DestCity = "Private Network"
	}
}

// parseTsharkPackets converts the live-window JSON into records, with
// local-aware threat heuristics applied.
func parseTsharkPackets(packets []tsharkPacket, now time.Time) []domain.TsharkRecord {
	records := make([]domain.TsharkRecord, 0, len(packets))
	for _, p := range packets {
		rec := domain.TsharkRecord{
			Timestamp:   now,
			FrameNumber: p.intField("frame.number"),
			FrameTime:   p.field("frame.time"),
			SrcIP:       p.field("ip.src"),
			DestIP:      p.field("ip.dst"),
			Length:      p.intField("frame.len"),

			TCPFlags:      p.field("tcp.flags"),
			TCPSyn:        p.flagField("tcp.flags.syn"),
			TCPAck:        p.flagField("tcp.flags.ack"),
			TCPFin:        p.flagField("tcp.flags.fin"),
			TCPRst:        p.flagField("tcp.flags.reset"),
			IPTTL:         p.intField("ip.ttl"),
			TCPWindowSize: p.intField("tcp.window_size_value"),

			HTTPHost:         p.field("http.host"),
			HTTPURI:          p.field("http.request.uri"),
			HTTPMethod:       p.field("http.request.method"),
			HTTPUserAgent:    p.field("http.user_agent"),
			HTTPResponseCode: p.intField("http.response.code"),

			DNSQuery:     p.field("dns.qry.name"),
			DNSQueryType: p.field("dns.qry.type"),
			DNSResponse:  p.field("dns.a"),

			TLSHandshakeType: p.field("tls.handshake.type"),
			TLSServerName:    p.field("tls.handshake.extensions_server_name"),
		}

		rec.SrcPort = int(p.intField("tcp.srcport"))
		if rec.SrcPort == 0 {
			rec.SrcPort = int(p.intField("udp.srcport"))
		}
		rec.DestPort = int(p.intField("tcp.dstport"))
		if rec.DestPort == 0 {
			rec.DestPort = int(p.intField("udp.dstport"))
		}
		rec.Protocol = protocolFromStack(p.field("frame.protocols"))

		scoreFrame(&rec)
		records = append(records, rec)
	}
	return records
}

func protocolFromStack(protocols string) string {
	lower := strings.ToLower(protocols)
	switch {
	case strings.Contains(lower, "tcp"):
		return "TCP"
	case strings.Contains(lower, "udp"):
		return "UDP"
	case strings.Contains(lower, "icmp"):
		return "ICMP"
	case strings.Contains(lower, "arp"):
		return "ARP"
	case protocols == "":
		return "Unknown"
	default:
		parts := strings.Split(protocols, ":")
		return parts[len(parts)-1]
	}
}

// scoreFrame applies the live-window heuristics. Direction matters:
// an outbound connection from a local source to a high port is normal,
// an external source reaching a local high port is not.
func scoreFrame(rec *domain.TsharkRecord) {
	score := 0
	suspicious := false

	srcLocal := domain.IsLocalIP(rec.SrcIP)
	destLocal := domain.IsLocalIP(rec.DestIP)

	if rec.DestPort > 50000 && rec.SrcIP != "" && !srcLocal {
		score += 5
		suspicious = true
	}
	if rec.TCPSyn == 1 && rec.TCPAck == 0 && rec.DestIP != "" && !destLocal {
		score += 3
		suspicious = true
	}
	if rec.TCPRst == 1 && rec.SrcIP != "" && !srcLocal {
		score += 2
	}
	if rec.IPTTL > 0 && rec.IPTTL < 32 && rec.DestIP != "" && !destLocal && !isMulticast(rec.DestIP) {
		score += 4
		suspicious = true
	}
	if rec.TCPWindowSize > 0 && rec.TCPWindowSize < 1000 && rec.SrcIP != "" && !srcLocal {
		score += 2
	}

	rec.ThreatScore = score
	if suspicious {
		rec.IsSuspicious = 1
	}
}

func isMulticast(ip string) bool {
	return strings.HasPrefix(ip, "224.") || strings.HasPrefix(ip, "239.")
}

var _ ports.Collector = (*TsharkCollector)(nil)
