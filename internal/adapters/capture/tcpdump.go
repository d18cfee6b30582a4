package capture

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// Ring buffer knobs for the long-running tcpdump process. A 16 MB
// kernel buffer with full snaplen keeps drops near zero on home links.
const (
	tcpdumpBufferKB   = 16 * 1024
	tcpdumpSnaplen    = 65535
	tcpdumpFileSizeMB = 50
	tcpdumpRingFiles  = 5
	// A pcap whose mtime is younger than this is still being written.
	pcapSettleAge = 5 * time.Second
	// Processed ring files kept on disk before cleanup removes them.
	pcapKeepCount = 10
)

// tcpdumpFields is the full field list the offline decoder asks tshark
// for, one selector per table column group.
var tcpdumpFields = []string{
	"frame.number", "frame.time", "frame.len",
	"eth.src", "eth.dst", "eth.type",
	"ip.src", "ip.dst", "ip.version", "ip.ttl", "ip.proto", "ip.len", "ip.id", "ip.flags",
	"tcp.srcport", "tcp.dstport", "udp.srcport", "udp.dstport",
	"tcp.seq", "tcp.ack", "tcp.flags",
	"tcp.flags.syn", "tcp.flags.ack", "tcp.flags.fin", "tcp.flags.reset",
	"tcp.flags.push", "tcp.flags.urg",
	"tcp.window_size", "tcp.stream", "udp.length",
	"dns.qry.name", "dns.resp.name",
	"http.request.method", "http.host", "http.request.uri",
	"http.user_agent", "http.response.code",
	"_ws.col.Protocol", "_ws.col.Info",
}

// TcpdumpCommand builds the ring-buffer capture invocation. Each start
// gets a fresh timestamped base name so files from a previous run are
// never appended to.
func TcpdumpCommand(iface, captureDir string) CommandFunc {
	return func(ctx context.Context) *exec.Cmd {
		base := filepath.Join(captureDir,
			"capture_"+time.Now().Format(domain.RunTableLayout))
		return exec.CommandContext(ctx, "tcpdump",
			"-i", iface,
			"-B", itoa(tcpdumpBufferKB),
			"-s", itoa(tcpdumpSnaplen),
			"-w", base+"_%03d.pcap",
			"-C", itoa(tcpdumpFileSizeMB),
			"-W", itoa(tcpdumpRingFiles),
			"-n", "-U",
		)
	}
}

// TcpdumpCollector drains settled ring-buffer pcaps into the full
// packet table, one run table per file.
type TcpdumpCollector struct {
	store      ports.CaptureStore
	positions  *ProcessedListStore
	captureDir string
	now        func() time.Time
}

// NewTcpdumpCollector creates the ring-buffer drain collector.
func NewTcpdumpCollector(store ports.CaptureStore, positions *ProcessedListStore, captureDir string) *TcpdumpCollector {
	return &TcpdumpCollector{
		store:      store,
		positions:  positions,
		captureDir: captureDir,
		now:        time.Now,
	}
}

func (c *TcpdumpCollector) Tool() string            { return domain.ToolTcpdump }
func (c *TcpdumpCollector) Interval() time.Duration { return 30 * time.Second }

// Collect decodes every settled, unprocessed pcap. Files are marked
// processed only after their rows are stored, and the per-cycle row
// ceiling defers remaining files to the next cycle.
func (c *TcpdumpCollector) Collect(ctx context.Context) (int, error) {
	paths, err := filepath.Glob(filepath.Join(c.captureDir, "capture_*.pcap"))
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	total := 0
	for _, path := range paths {
		if total >= maxRowsPerCycle {
			slog.Info("row ceiling reached, deferring remaining pcaps",
				"tool", c.Tool(), "rows", total)
			break
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < pcapSettleAge {
			continue
		}
		name := filepath.Base(path)
		mtime := info.ModTime().Unix()
		if c.positions.IsProcessed(ctx, name, mtime) {
			continue
		}

		records, err := c.decode(ctx, path)
		if err != nil {
			return total, err
		}
		if len(records) > maxRowsPerCycle-total {
			records = records[:maxRowsPerCycle-total]
		}

		if len(records) > 0 {
			rows := make([]domain.Row, len(records))
			for i, r := range records {
				rows[i] = r.Row()
			}
			table, err := storeRows(ctx, c.store, domain.TcpdumpTableSpec(), rows, c.now())
			if err != nil {
				return total, err
			}
			slog.Info("stored decoded packets",
				"tool", c.Tool(), "table", table, "rows", len(rows), "pcap", name)
			total += len(rows)
		}

		if err := c.positions.MarkProcessed(ctx, name, mtime); err != nil {
			return total, err
		}
	}

	c.cleanup(ctx, paths)
	return total, nil
}

func (c *TcpdumpCollector) decode(ctx context.Context, path string) ([]domain.TcpdumpRecord, error) {
	if tsharkAvailable() {
		packets, err := readPCAPJSON(ctx, path, tcpdumpFields)
		if err != nil {
			return nil, err
		}
		return parseTcpdumpPackets(packets, c.now()), nil
	}
	return decodePCAPNative(path, maxRowsPerCycle, c.now())
}

// cleanup removes processed pcaps beyond the newest pcapKeepCount so
// the capture directory stays bounded.
func (c *TcpdumpCollector) cleanup(ctx context.Context, paths []string) {
	var processed []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if c.positions.IsProcessed(ctx, filepath.Base(path), info.ModTime().Unix()) {
			processed = append(processed, path)
		}
	}
	if len(processed) <= pcapKeepCount {
		return
	}
	for _, path := range processed[:len(processed)-pcapKeepCount] {
		if err := os.Remove(path); err == nil {
			c.positions.Forget(ctx, filepath.Base(path))
			slog.Debug("removed processed pcap", "pcap", filepath.Base(path))
		}
	}
}

// parseTcpdumpPackets converts tshark's JSON field output into full
// packet records.
func parseTcpdumpPackets(packets []tsharkPacket, now time.Time) []domain.TcpdumpRecord {
	records := make([]domain.TcpdumpRecord, 0, len(packets))
	for _, p := range packets {
		rec := domain.TcpdumpRecord{
			Timestamp:   now,
			FrameNumber: p.intField("frame.number"),
			FrameTime:   p.field("frame.time"),
			FrameLength: p.intField("frame.len"),

			EthSrc:  p.field("eth.src"),
			EthDst:  p.field("eth.dst"),
			EthType: p.field("eth.type"),

			SrcIP:      p.field("ip.src"),
			DestIP:     p.field("ip.dst"),
			IPVersion:  p.intField("ip.version"),
			IPTTL:      p.intField("ip.ttl"),
			IPProtocol: p.field("ip.proto"),
			IPLen:      p.intField("ip.len"),
			IPID:       p.intField("ip.id"),
			IPFlags:    p.field("ip.flags"),

			TCPSeq:        p.intField("tcp.seq"),
			TCPAckNum:     p.intField("tcp.ack"),
			TCPFlags:      p.field("tcp.flags"),
			TCPSyn:        p.flagField("tcp.flags.syn"),
			TCPAck:        p.flagField("tcp.flags.ack"),
			TCPFin:        p.flagField("tcp.flags.fin"),
			TCPRst:        p.flagField("tcp.flags.reset"),
			TCPPsh:        p.flagField("tcp.flags.push"),
			TCPUrg:        p.flagField("tcp.flags.urg"),
			TCPWindowSize: p.intField("tcp.window_size"),
			TCPStream:     p.intField("tcp.stream"),

			UDPLength: p.intField("udp.length"),

			DNSQuery:       p.field("dns.qry.name"),
			DNSResponse:    p.field("dns.resp.name"),
			HTTPMethod:     p.field("http.request.method"),
			HTTPHost:       p.field("http.host"),
			HTTPURI:        p.field("http.request.uri"),
			HTTPUserAgent:  p.field("http.user_agent"),
			HTTPStatusCode: p.intField("http.response.code"),

			Info: p.field("_ws.col.Info"),
		}

		rec.SrcPort = int(p.intField("tcp.srcport"))
		if rec.SrcPort == 0 {
			rec.SrcPort = int(p.intField("udp.srcport"))
		}
		rec.DestPort = int(p.intField("tcp.dstport"))
		if rec.DestPort == 0 {
			rec.DestPort = int(p.intField("udp.dstport"))
		}

		rec.Protocol = p.field("_ws.col.Protocol")
		if rec.Protocol == "" {
			rec.Protocol = fallbackProtocol(p)
		}

		scorePacket(&rec)
		records = append(records, rec)
	}
	return records
}

func fallbackProtocol(p tsharkPacket) string {
	switch {
	case p.field("tcp.srcport") != "":
		return "TCP"
	case p.field("udp.srcport") != "":
		return "UDP"
	}
	switch p.field("ip.proto") {
	case "1":
		return "ICMP"
	case "2":
		return "IGMP"
	case "47":
		return "GRE"
	case "":
		return ""
	default:
		return "IP-" + p.field("ip.proto")
	}
}

// scorePacket applies the offline threat heuristics: SYNs to
// ephemeral ports, SYN+RST churn, and suspiciously low TTLs.
func scorePacket(rec *domain.TcpdumpRecord) {
	score := 0
	if rec.DestPort > 50000 && rec.TCPSyn == 1 {
		score += 3
	}
	if rec.TCPRst == 1 && rec.TCPSyn == 1 {
		score += 2
	}
	if rec.IPTTL > 0 && rec.IPTTL < 30 {
		score++
	}
	rec.ThreatScore = score
	if score > 3 {
		rec.IsSuspicious = 1
	}
}

var _ ports.Collector = (*TcpdumpCollector)(nil)
