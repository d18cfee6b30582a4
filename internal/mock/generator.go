// Package mock generates synthetic capture traffic for machines without
// the capture tools installed. Rows go through the real capture store
// into real run tables, and the neighbour table is written in
// /proc/net/arp format, so discovery, enrichment, scoring, scanning and
// alerting all run the same code paths they would against live traffic.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/adapters/capture"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/telemetry"
)

const (
	tickEvery   = 20 * time.Second
	rotateEvery = 10 * time.Minute
	maxHosts    = 18

	joinChance     = 0.10
	leaveChance    = 0.05
	incidentChance = 0.08

	upstreamDNS = "8.8.8.8"
)

// simulatedTools is the collector set the generator stands in for. It
// reports these as running so the dashboard status page stays truthful
// about where the rows come from.
var simulatedTools = []string{
	domain.ToolTcpdump, domain.ToolTshark, domain.ToolP0f, domain.ToolNgrep,
	domain.ToolHttpry, domain.ToolIftop, domain.ToolNethogs, domain.ToolSuricata,
}

type endpoint struct {
	ip   string
	port int
	name string
}

type mockHost struct {
	mac      string
	ip       string
	hostname string
	osName   string
	osFlavor string
	talks    []endpoint
	// odd is a non-standard endpoint the host beacons to every cycle,
	// feeding the suspicious connection check.
	odd   *endpoint
	guest bool
}

// cloudEndpoints are benign services fleet devices call home to.
var cloudEndpoints = []endpoint{
	{ip: "142.250.74.36", port: 443, name: "www.googleapis.com"},
	{ip: "151.101.1.140", port: 443, name: "global.ssl.fastly.net"},
	{ip: "104.16.132.229", port: 443, name: "api.cloudflare.com"},
	{ip: "52.94.236.248", port: 443, name: "iot.us-east-1.amazonaws.com"},
	{ip: "17.253.144.10", port: 443, name: "gs.apple.com"},
	{ip: "198.38.120.154", port: 443, name: "ipv4-c001-lhr001.nflxvideo.net"},
}

// guestCatalog seeds the transient devices that join and leave the
// network over time. One prefix is deliberately absent from the builtin
// vendor map so the unknown-vendor path gets exercised too.
var guestCatalog = []struct {
	prefix, hostname, osName, osFlavor string
}{
	{"3C:22:FB", "iphone-guest", "iOS", "iPhone or iPad"},
	{"8C:F5:A3", "galaxy-s21", "Linux", "Android"},
	{"A4:BF:01", "thinkpad-visitor", "Windows", "NT kernel"},
	{"F4:F5:D8", "pixel-7", "Linux", "Android"},
}

// baseFleet is the persistent household. MAC suffixes are fixed so
// device identity survives daemon restarts. The camera carries an odd
// endpoint and speaks plaintext HTTP, making it the natural suspect for
// the behavioural checks.
func baseFleet() []*mockHost {
	google := cloudEndpoints[0]
	fastly := cloudEndpoints[1]
	cloudflare := cloudEndpoints[2]
	amazon := cloudEndpoints[3]
	apple := cloudEndpoints[4]
	netflix := cloudEndpoints[5]
	github := endpoint{ip: "140.82.121.3", port: 443, name: "github.com"}
	tuya := endpoint{ip: "34.107.221.82", port: 443, name: "m2.tuyaus.com"}
	camCloud := endpoint{ip: "203.0.113.50", port: 80, name: "dev.hik-cloud.example.com"}
	plugCloud := endpoint{ip: "203.0.113.61", port: 80, name: "fw.smartlife.example.com"}
	printSrv := endpoint{ip: "203.0.113.72", port: 80, name: "update.brother.example.com"}

	return []*mockHost{
		{mac: "50:C7:BF:3A:91:C4", ip: "192.168.1.1", hostname: "gateway",
			osName: "Linux", osFlavor: "2.6.x",
			talks: []endpoint{{ip: upstreamDNS, port: 53}}},
		{mac: "B8:27:EB:7D:22:0F", ip: "192.168.1.2", hostname: "raspberrypi",
			osName: "Linux", osFlavor: "3.11 and newer",
			talks: []endpoint{github, fastly}},
		{mac: "F0:18:98:6B:DA:33", ip: "192.168.1.20", hostname: "macbook-pro",
			osName: "Mac OS X", osFlavor: "10.x",
			talks: []endpoint{apple, google, fastly}},
		{mac: "A4:BF:01:55:C0:1E", ip: "192.168.1.21", hostname: "desktop-w10",
			osName: "Windows", osFlavor: "NT kernel",
			talks: []endpoint{google, cloudflare}},
		{mac: "AC:BC:32:19:4E:88", ip: "192.168.1.30", hostname: "iphone-ana",
			osName: "iOS", osFlavor: "iPhone or iPad",
			talks: []endpoint{apple, google}},
		{mac: "28:6C:07:AA:0D:52", ip: "192.168.1.31", hostname: "redmi-note",
			osName: "Linux", osFlavor: "Android",
			talks: []endpoint{google, cloudflare}},
		{mac: "44:19:B6:C4:72:0A", ip: "192.168.1.40", hostname: "ipcam-porch",
			osName: "Linux", osFlavor: "2.6.x",
			talks: []endpoint{camCloud},
			odd:   &endpoint{ip: "198.51.100.23", port: 12345}},
		{mac: "8C:F5:A3:02:66:B1", ip: "192.168.1.41", hostname: "living-room-tv",
			osName: "Linux", osFlavor: "3.11 and newer",
			talks: []endpoint{netflix, fastly}},
		{mac: "FC:65:DE:91:3B:77", ip: "192.168.1.42", hostname: "echo-kitchen",
			osName: "Linux", osFlavor: "3.11 and newer",
			talks: []endpoint{amazon}},
		{mac: "24:0A:C4:11:5F:D9", ip: "192.168.1.43", hostname: "smart-plug",
			osName: "Linux", osFlavor: "2.6.x",
			talks: []endpoint{tuya, plugCloud}},
		{mac: "00:80:77:62:E8:40", ip: "192.168.1.44", hostname: "brother-printer",
			osName: "Linux", osFlavor: "2.6.x",
			talks: []endpoint{printSrv}},
		{mac: "18:B4:30:5C:07:21", ip: "192.168.1.45", hostname: "nest-hallway",
			osName: "Linux", osFlavor: "3.11 and newer",
			talks: []endpoint{google}},
	}
}

// Generator drives the synthetic traffic loop. All state belongs to the
// Run goroutine; nothing here is safe for concurrent use.
type Generator struct {
	store   ports.CaptureStore
	board   *capture.StatusBoard
	arpPath string
	rand    *rand.Rand

	hosts  []*mockHost
	usedIP map[string]bool
	frame  int64

	tables    map[string]string
	createdAt map[string]time.Time
}

// NewGenerator seeds the fleet and writes the initial neighbour table.
func NewGenerator(store ports.CaptureStore, board *capture.StatusBoard, arpPath string) (*Generator, error) {
	g := &Generator{
		store:     store,
		board:     board,
		arpPath:   arpPath,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		hosts:     baseFleet(),
		usedIP:    make(map[string]bool),
		tables:    make(map[string]string),
		createdAt: make(map[string]time.Time),
	}
	for _, h := range g.hosts {
		g.usedIP[h.ip] = true
	}
	if err := os.MkdirAll(filepath.Dir(arpPath), 0o755); err != nil {
		return nil, fmt.Errorf("create arp directory: %w", err)
	}
	if err := g.writeARP(); err != nil {
		return nil, fmt.Errorf("write neighbour table: %w", err)
	}
	return g, nil
}

// Run emits one traffic cycle per tick until ctx ends.
func (g *Generator) Run(ctx context.Context) error {
	pid := os.Getpid()
	for _, tool := range simulatedTools {
		g.board.SetRunning(tool, pid, true)
	}

	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()
	for {
		g.cycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Generator) cycle(ctx context.Context) {
	g.churn()

	now := time.Now()
	batch := domain.Batch{}
	g.emitTraffic(batch, now)
	if g.rand.Float32() < incidentChance {
		g.emitIncident(batch, now)
	}
	for prefix, rows := range batch {
		g.flush(ctx, prefix, rows)
	}

	if err := g.writeARP(); err != nil {
		slog.Warn("mock neighbour table write failed", "path", g.arpPath, "error", err)
	}
}

// flush writes one prefix's rows, rotating to a fresh run table on the
// same cadence a restarted collector would.
func (g *Generator) flush(ctx context.Context, prefix string, rows []domain.Row) {
	if len(rows) == 0 {
		return
	}
	spec := specFor(prefix)
	tool := boardTool(prefix)

	table, ok := g.tables[prefix]
	if !ok || time.Since(g.createdAt[prefix]) >= rotateEvery {
		name, err := g.store.CreateRunTable(ctx, spec, time.Now())
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("mock run table create failed", "prefix", prefix, "error", err)
				g.board.RecordError(tool, err)
			}
			return
		}
		g.tables[prefix] = name
		g.createdAt[prefix] = time.Now()
		table = name
	}

	if err := g.store.InsertRows(ctx, table, spec.Columns, rows); err != nil {
		if ctx.Err() == nil {
			slog.Error("mock insert failed", "table", table, "error", err)
			g.board.RecordError(tool, err)
		}
		return
	}
	telemetry.RowsIngested.WithLabelValues(tool).Add(float64(len(rows)))
	g.board.RecordRows(tool, len(rows))
}

func specFor(prefix string) domain.TableSpec {
	switch prefix {
	case domain.ToolTcpdump:
		return domain.TcpdumpTableSpec()
	case domain.ToolTshark:
		return domain.TsharkTableSpec()
	case domain.ToolP0f:
		return domain.P0fTableSpec()
	case domain.ToolNgrep:
		return domain.NgrepTableSpec()
	case domain.ToolHttpry:
		return domain.HttpryTableSpec()
	case domain.ToolIftop:
		return domain.IftopTableSpec()
	case domain.ToolNethogs:
		return domain.NethogsTableSpec()
	default:
		return domain.SuricataTableSpec(strings.TrimPrefix(prefix, domain.ToolSuricata+"_"))
	}
}

func boardTool(prefix string) string {
	if strings.HasPrefix(prefix, domain.ToolSuricata+"_") {
		return domain.ToolSuricata
	}
	return prefix
}

// churn joins and drops guest devices with the same odds a busy
// household shows over an afternoon.
func (g *Generator) churn() {
	if g.rand.Float32() < joinChance && len(g.hosts) < maxHosts {
		g.addGuest()
	}
	if g.rand.Float32() < leaveChance {
		g.dropGuest()
	}
}

func (g *Generator) addGuest() {
	tpl := guestCatalog[g.rand.Intn(len(guestCatalog))]
	ip := g.freeIP()
	if ip == "" {
		return
	}
	mac := fmt.Sprintf("%s:%02X:%02X:%02X", tpl.prefix,
		g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256))
	talks := []endpoint{
		cloudEndpoints[g.rand.Intn(len(cloudEndpoints))],
		cloudEndpoints[g.rand.Intn(len(cloudEndpoints))],
	}
	g.hosts = append(g.hosts, &mockHost{
		mac:      mac,
		ip:       ip,
		hostname: fmt.Sprintf("%s-%d", tpl.hostname, g.rand.Intn(90)+10),
		osName:   tpl.osName,
		osFlavor: tpl.osFlavor,
		talks:    talks,
		guest:    true,
	})
	g.usedIP[ip] = true
	slog.Debug("mock guest joined", "ip", ip, "mac", mac)
}

func (g *Generator) dropGuest() {
	guests := make([]int, 0, len(g.hosts))
	for i, h := range g.hosts {
		if h.guest {
			guests = append(guests, i)
		}
	}
	if len(guests) == 0 {
		return
	}
	i := guests[g.rand.Intn(len(guests))]
	gone := g.hosts[i]
	delete(g.usedIP, gone.ip)
	g.hosts = append(g.hosts[:i], g.hosts[i+1:]...)
	slog.Debug("mock guest left", "ip", gone.ip)
}

// freeIP hands out guest leases from .100 up.
func (g *Generator) freeIP() string {
	for n := 100; n < 100+2*maxHosts; n++ {
		ip := fmt.Sprintf("192.168.1.%d", n)
		if !g.usedIP[ip] {
			return ip
		}
	}
	return ""
}

// emitTraffic produces one cycle of background activity for every host.
func (g *Generator) emitTraffic(batch domain.Batch, now time.Time) {
	for _, h := range g.hosts {
		flows := 1 + g.rand.Intn(3)
		for i := 0; i < flows; i++ {
			g.emitFlow(batch, now, h, h.talks[g.rand.Intn(len(h.talks))])
		}
		if h.odd != nil {
			g.emitFlow(batch, now, h, *h.odd)
			g.emitFlow(batch, now, h, *h.odd)
		}
		if g.rand.Float32() < 0.5 {
			r := h.talks[g.rand.Intn(len(h.talks))]
			if r.name != "" {
				g.emitDNS(batch, now, h, r.name)
			}
		}
		if g.rand.Float32() < 0.3 {
			g.emitFingerprint(batch, now, h)
		}
	}
	g.emitProcessSamples(batch, now)
	if g.rand.Float32() < 0.05 {
		g.emitNoiseAlert(batch, now)
	}
}

// emitFlow writes one established exchange across the packet, flow rate
// and protocol tables. Plaintext port 80 flows also hit the HTTP logs.
func (g *Generator) emitFlow(batch domain.Batch, now time.Time, h *mockHost, r endpoint) {
	at := g.jitter(now)
	sport := 49152 + g.rand.Intn(16000)
	length := int64(64 + g.rand.Intn(1380))
	g.frame++

	proto := "TCP"
	var tlsName, httpHost, httpMethod, httpURI string
	switch r.port {
	case 443:
		proto = "TLSv1.2"
		tlsName = r.name
	case 80:
		proto = "HTTP"
		httpHost = r.name
		httpMethod = "GET"
		httpURI = "/api/v1/status"
	case 53:
		proto = "DNS"
	}

	batch.Append(domain.ToolTshark, domain.TsharkRecord{
		Timestamp:     at,
		FrameNumber:   g.frame,
		FrameTime:     at.Format(domain.TimestampLayout),
		SrcIP:         h.ip,
		SrcPort:       sport,
		DestIP:        r.ip,
		DestPort:      r.port,
		Protocol:      proto,
		Length:        length,
		Info:          fmt.Sprintf("%d > %d [PSH, ACK]", sport, r.port),
		TCPFlags:      "0x0018",
		TCPAck:        1,
		IPTTL:         64,
		TCPWindowSize: 65535,
		HTTPHost:      httpHost,
		HTTPURI:       httpURI,
		HTTPMethod:    httpMethod,
		TLSServerName: tlsName,
	}.Row())

	batch.Append(domain.ToolTcpdump, domain.TcpdumpRecord{
		Timestamp:   at,
		FrameNumber: g.frame,
		FrameTime:   at.Format(domain.TimestampLayout),
		FrameLength: length,
		EthSrc:      h.mac,
		EthDst:      g.hosts[0].mac,
		EthType:     "0x0800",
		SrcIP:       h.ip,
		DestIP:      r.ip,
		IPVersion:   4,
		IPTTL:       64,
		IPProtocol:  "6",
		IPLen:       length - 14,
		SrcPort:     sport,
		DestPort:    r.port,
		Protocol:    proto,
		TCPFlags:    "0x0018",
		TCPAck:      1,
		TCPPsh:      1,
		HTTPHost:    httpHost,
		HTTPMethod:  httpMethod,
	}.Row())

	batch.Append(domain.ToolIftop, domain.RateRecord{
		Timestamp: at,
		SrcIP:     h.ip,
		SrcPort:   fmt.Sprintf("%d", sport),
		DestIP:    r.ip,
		DestPort:  fmt.Sprintf("%d", r.port),
		Direction: "TX",
		TxRate:    g.rate(),
		RxRate:    g.rate(),
		TotalRate: g.rate(),
	}.Row())

	if r.port == 80 {
		batch.Append(domain.ToolHttpry, domain.HTTPRecord{
			Timestamp:    at.Format(domain.TimestampLayout),
			SrcIP:        h.ip,
			DestIP:       r.ip,
			Direction:    ">",
			Method:       httpMethod,
			Host:         httpHost,
			RequestURI:   httpURI,
			HTTPVersion:  "HTTP/1.1",
			StatusCode:   "-",
			ReasonPhrase: "-",
		}.Row())
		if g.rand.Float32() < 0.4 {
			batch.Append(domain.ToolNgrep, domain.MatchRecord{
				Timestamp:   at,
				Interface:   "eth0",
				SrcIP:       h.ip,
				SrcPort:     fmt.Sprintf("%d", sport),
				DestIP:      r.ip,
				DestPort:    "80",
				Protocol:    "TCP",
				MatchedData: fmt.Sprintf("GET %s HTTP/1.1 Host: %s", httpURI, httpHost),
			}.Row())
		}
	}
}

func (g *Generator) emitDNS(batch domain.Batch, now time.Time, h *mockHost, name string) {
	at := g.jitter(now)
	flowID := g.rand.Int63n(1 << 40)
	dnsID := int64(g.rand.Intn(65536))
	sport := 32768 + g.rand.Intn(28000)

	batch.Append(domain.ToolSuricata+"_dns", domain.Row{
		at.Format(domain.TimestampLayout), flowID,
		h.ip, sport, upstreamDNS, 53,
		"query", dnsID, name, "A", "", "", 0,
	})
	if g.rand.Float32() < 0.8 {
		batch.Append(domain.ToolSuricata+"_dns", domain.Row{
			at.Add(time.Millisecond * 40).Format(domain.TimestampLayout), flowID,
			upstreamDNS, 53, h.ip, sport,
			"answer", dnsID, name, "A", "NOERROR",
			fmt.Sprintf("93.184.%d.%d", g.rand.Intn(250), g.rand.Intn(250)), 300,
		})
	}
}

func (g *Generator) emitFingerprint(batch domain.Batch, now time.Time, h *mockHost) {
	r := h.talks[g.rand.Intn(len(h.talks))]
	batch.Append(domain.ToolP0f, domain.FingerprintRecord{
		Timestamp: g.jitter(now),
		SrcIP:     h.ip,
		SrcPort:   fmt.Sprintf("%d", 49152+g.rand.Intn(16000)),
		DestIP:    r.ip,
		DestPort:  fmt.Sprintf("%d", r.port),
		OSName:    h.osName,
		OSFlavor:  h.osFlavor,
		LinkType:  "Ethernet or modem",
		Distance:  "0",
	}.Row())
}

func (g *Generator) emitProcessSamples(batch domain.Batch, now time.Time) {
	samples := []struct {
		program, user string
	}{
		{"/usr/lib/firefox/firefox", "ana"},
		{"/usr/bin/ssh", "pi"},
		{"/opt/plex/Plex Media Server", "media"},
	}
	for _, s := range samples {
		if g.rand.Float32() > 0.6 {
			continue
		}
		batch.Append(domain.ToolNethogs, domain.ProcessRecord{
			Timestamp:  g.jitter(now),
			Program:    s.program,
			PID:        fmt.Sprintf("%d", 400+g.rand.Intn(30000)),
			User:       s.user,
			SentKB:     float64(g.rand.Intn(800)) / 10,
			ReceivedKB: float64(g.rand.Intn(4000)) / 10,
		}.Row())
	}
}

// emitNoiseAlert produces benign IDS chatter so the alert table is not
// empty between incidents.
func (g *Generator) emitNoiseAlert(batch domain.Batch, now time.Time) {
	h := g.hosts[1+g.rand.Intn(len(g.hosts)-1)]
	at := g.jitter(now)
	batch.Append(domain.ToolSuricata+"_alerts", domain.Row{
		at.Format(domain.TimestampLayout), g.rand.Int63n(1 << 40), "alert",
		h.ip, 49152 + g.rand.Intn(16000), cloudEndpoints[1].ip, 443,
		"TCP", "ET POLICY curl User-Agent Outbound",
		"Potential Corporate Privacy Violation", 3, 2002824, 1, 13, "allowed",
	})
}

// emitIncident injects one of the attack patterns the rule engine looks
// for. Timestamps are honest, so a detection cycle has to land inside
// the rule's window to raise the alert, same as live capture.
func (g *Generator) emitIncident(batch domain.Batch, now time.Time) {
	switch g.rand.Intn(4) {
	case 0:
		g.emitPortScan(batch, now)
	case 1:
		g.emitBruteForce(batch, now)
	case 2:
		g.emitDNSTunnel(batch, now)
	default:
		g.emitBeacons(batch, now)
	}
}

// emitPortScan sends a SYN sweep, unanswered so the ACK bit stays clear.
func (g *Generator) emitPortScan(batch domain.Batch, now time.Time) {
	src := g.suspect()
	victim := g.hosts[1]
	ports := 25 + g.rand.Intn(15)
	base := 1 + g.rand.Intn(800)
	slog.Debug("mock incident: port scan", "src", src.ip, "ports", ports)
	for i := 0; i < ports; i++ {
		at := g.jitter(now)
		g.frame++
		batch.Append(domain.ToolTcpdump, domain.TcpdumpRecord{
			Timestamp:   at,
			FrameNumber: g.frame,
			FrameTime:   at.Format(domain.TimestampLayout),
			FrameLength: 60,
			EthSrc:      src.mac,
			EthDst:      victim.mac,
			EthType:     "0x0800",
			SrcIP:       src.ip,
			DestIP:      victim.ip,
			IPVersion:   4,
			IPTTL:       64,
			IPProtocol:  "6",
			IPLen:       44,
			SrcPort:     40000 + g.rand.Intn(20000),
			DestPort:    base + i*3,
			Protocol:    "TCP",
			TCPFlags:    "0x0002",
			TCPSyn:      1,
		}.Row())
	}
}

func (g *Generator) emitBruteForce(batch domain.Batch, now time.Time) {
	src := g.suspect()
	target := g.hosts[1]
	tries := 6 + g.rand.Intn(5)
	slog.Debug("mock incident: ssh brute force", "src", src.ip, "tries", tries)
	for i := 0; i < tries; i++ {
		at := g.jitter(now)
		batch.Append(domain.ToolSuricata+"_alerts", domain.Row{
			at.Format(domain.TimestampLayout), g.rand.Int63n(1 << 40), "alert",
			src.ip, 40000 + g.rand.Intn(20000), target.ip, 22,
			"TCP", "ET SCAN LibSSH Based Frequent SSH Connections Likely BruteForce Attack",
			"Attempted Administrator Privilege Gain", 2, 2006546, 1, 9, "allowed",
		})
	}
}

func (g *Generator) emitDNSTunnel(batch domain.Batch, now time.Time) {
	src := g.suspect()
	queries := 6 + g.rand.Intn(6)
	slog.Debug("mock incident: dns tunnel", "src", src.ip, "queries", queries)
	for i := 0; i < queries; i++ {
		at := g.jitter(now)
		name := g.randLabel(63) + ".t.exfil-test.example.net"
		batch.Append(domain.ToolSuricata+"_dns", domain.Row{
			at.Format(domain.TimestampLayout), g.rand.Int63n(1 << 40),
			src.ip, 32768 + g.rand.Intn(28000), upstreamDNS, 53,
			"query", int64(g.rand.Intn(65536)), name, "TXT", "", "", 0,
		})
	}
}

func (g *Generator) emitBeacons(batch domain.Batch, now time.Time) {
	src := g.suspect()
	c2 := endpoint{ip: "203.0.113.66", port: 4444}
	beats := 12 + g.rand.Intn(6)
	slog.Debug("mock incident: c2 beacons", "src", src.ip, "beats", beats)
	sport := 49152 + g.rand.Intn(16000)
	for i := 0; i < beats; i++ {
		at := g.jitter(now)
		g.frame++
		batch.Append(domain.ToolTshark, domain.TsharkRecord{
			Timestamp:     at,
			FrameNumber:   g.frame,
			FrameTime:     at.Format(domain.TimestampLayout),
			SrcIP:         src.ip,
			SrcPort:       sport,
			DestIP:        c2.ip,
			DestPort:      c2.port,
			Protocol:      "TCP",
			Length:        int64(90 + g.rand.Intn(40)),
			Info:          fmt.Sprintf("%d > %d [PSH, ACK]", sport, c2.port),
			TCPFlags:      "0x0018",
			TCPAck:        1,
			IPTTL:         64,
			TCPWindowSize: 29200,
		}.Row())
	}
}

// suspect picks the incident source: a guest when one is around,
// otherwise the camera.
func (g *Generator) suspect() *mockHost {
	for _, h := range g.hosts {
		if h.guest {
			return h
		}
	}
	for _, h := range g.hosts {
		if h.odd != nil {
			return h
		}
	}
	return g.hosts[len(g.hosts)-1]
}

// writeARP renders the fleet in /proc/net/arp format for the tracker.
func (g *Generator) writeARP() error {
	var b strings.Builder
	b.WriteString("IP address       HW type     Flags       HW address            Mask     Device\n")
	for _, h := range g.hosts {
		fmt.Fprintf(&b, "%-16s 0x1         0x2         %-21s *        eth0\n",
			h.ip, strings.ToLower(h.mac))
	}
	return os.WriteFile(g.arpPath, []byte(b.String()), 0o644)
}

// jitter spreads a row's timestamp backwards across the tick window.
func (g *Generator) jitter(now time.Time) time.Time {
	return now.Add(-time.Duration(g.rand.Intn(int(tickEvery/time.Millisecond))) * time.Millisecond)
}

func (g *Generator) rate() string {
	switch g.rand.Intn(3) {
	case 0:
		return fmt.Sprintf("%db", 40+g.rand.Intn(900))
	case 1:
		return fmt.Sprintf("%d.%02dKb", g.rand.Intn(900), g.rand.Intn(100))
	default:
		return fmt.Sprintf("%d.%02dMb", 1+g.rand.Intn(8), g.rand.Intn(100))
	}
}

func (g *Generator) randLabel(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphabet[g.rand.Intn(len(alphabet))]
	}
	return string(buf)
}
