package domain

import "time"

// TimestampLayout is the wall-clock format stored in capture tables.
const TimestampLayout = "2006-01-02 15:04:05"

// RunTableLayout is the suffix appended to a tool prefix for each collector
// run. Lexicographic order on table names equals chronological order, which
// is what "latest table" queries rely on.
const RunTableLayout = "20060102_150405"

// Capture tool names. Each owns a family of run tables named
// <tool>_<RunTableLayout> plus a <tool>_template reference table.
const (
	ToolTcpdump  = "tcpdump"
	ToolTshark   = "tshark"
	ToolP0f      = "p0f"
	ToolNgrep    = "ngrep"
	ToolHttpry   = "httpry"
	ToolArgus    = "argus"
	ToolNetsniff = "netsniff"
	ToolIftop    = "iftop"
	ToolNethogs  = "nethogs"
	ToolSuricata = "suricata"
)

// AllTools lists every supported capture tool in startup order.
var AllTools = []string{
	ToolTcpdump, ToolTshark, ToolP0f, ToolNgrep, ToolHttpry,
	ToolArgus, ToolNetsniff, ToolIftop, ToolNethogs, ToolSuricata,
}

// Suricata event categories, each persisted to its own table family
// (suricata_<category>_<run>).
var SuricataCategories = []string{
	"alerts", "http", "dns", "tls", "files", "flow",
	"ssh", "smtp", "ftp", "anomaly", "stats",
}

// Row is one parsed record, values ordered to match its TableSpec columns.
type Row []any

// Column describes a single capture-table column.
type Column struct {
	Name string
	Type string // SQLite affinity: TEXT, INTEGER, REAL
}

// TableSpec describes the schema of one capture table family.
type TableSpec struct {
	Prefix  string // e.g. "tshark", "suricata_alerts"
	Columns []Column
	Indexes []string // column names that get a per-table index
}

// Batch groups parsed rows by destination table prefix. Most tools emit a
// single prefix; suricata fans out to eleven.
type Batch map[string][]Row

// Append adds rows under a prefix, allocating the map lazily.
func (b Batch) Append(prefix string, rows ...Row) {
	if len(rows) == 0 {
		return
	}
	b[prefix] = append(b[prefix], rows...)
}

// Size returns the total row count across all prefixes.
func (b Batch) Size() int {
	n := 0
	for _, rows := range b {
		n += len(rows)
	}
	return n
}

func textCols(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: "TEXT"}
	}
	return cols
}

// TcpdumpTableSpec is the full packet table fed from ring-buffer PCAPs.
// Every layer the offline decoder extracts gets a column, so correlators
// can query L2 through application fields without reopening the capture.
func TcpdumpTableSpec() TableSpec {
	return TableSpec{
		Prefix: ToolTcpdump,
		Columns: []Column{
			{"timestamp", "TEXT"},
			{"frame_number", "INTEGER"}, {"frame_time", "TEXT"}, {"frame_length", "INTEGER"},
			{"eth_src", "TEXT"}, {"eth_dst", "TEXT"}, {"eth_type", "TEXT"},
			{"src_ip", "TEXT"}, {"dest_ip", "TEXT"},
			{"ip_version", "INTEGER"}, {"ip_ttl", "INTEGER"}, {"ip_protocol", "TEXT"},
			{"ip_len", "INTEGER"}, {"ip_id", "INTEGER"}, {"ip_flags", "TEXT"},
			{"src_port", "INTEGER"}, {"dest_port", "INTEGER"}, {"protocol", "TEXT"},
			{"tcp_seq", "INTEGER"}, {"tcp_ack_num", "INTEGER"}, {"tcp_flags", "TEXT"},
			{"tcp_syn", "INTEGER"}, {"tcp_ack", "INTEGER"}, {"tcp_fin", "INTEGER"},
			{"tcp_rst", "INTEGER"}, {"tcp_psh", "INTEGER"}, {"tcp_urg", "INTEGER"},
			{"tcp_window_size", "INTEGER"}, {"tcp_stream", "INTEGER"},
			{"udp_length", "INTEGER"},
			{"dns_query", "TEXT"}, {"dns_response", "TEXT"},
			{"http_method", "TEXT"}, {"http_host", "TEXT"}, {"http_uri", "TEXT"},
			{"http_user_agent", "TEXT"}, {"http_status_code", "INTEGER"},
			{"info", "TEXT"}, {"packet_data", "TEXT"},
			{"is_suspicious", "INTEGER"}, {"threat_score", "INTEGER"},
		},
		Indexes: []string{"src_ip", "dest_ip", "protocol", "timestamp"},
	}
}

// TsharkTableSpec is the live-window packet table: one bounded capture per
// cycle, decoded with HTTP, DNS and TLS metadata plus geo enrichment.
func TsharkTableSpec() TableSpec {
	return TableSpec{
		Prefix: ToolTshark,
		Columns: []Column{
			{"timestamp", "TEXT"},
			{"frame_number", "INTEGER"}, {"frame_time", "TEXT"},
			{"src_ip", "TEXT"}, {"src_port", "INTEGER"},
			{"dest_ip", "TEXT"}, {"dest_port", "INTEGER"},
			{"protocol", "TEXT"}, {"length", "INTEGER"}, {"info", "TEXT"},
			{"tcp_flags", "TEXT"}, {"tcp_syn", "INTEGER"}, {"tcp_ack", "INTEGER"},
			{"tcp_fin", "INTEGER"}, {"tcp_rst", "INTEGER"},
			{"ip_ttl", "INTEGER"}, {"tcp_window_size", "INTEGER"},
			{"http_host", "TEXT"}, {"http_uri", "TEXT"}, {"http_method", "TEXT"},
			{"http_user_agent", "TEXT"}, {"http_response_code", "INTEGER"},
			{"dns_query", "TEXT"}, {"dns_query_type", "TEXT"}, {"dns_response", "TEXT"},
			{"tls_handshake_type", "TEXT"}, {"tls_server_name", "TEXT"},
			{"dest_country", "TEXT"}, {"dest_city", "TEXT"},
			{"is_suspicious", "INTEGER"}, {"threat_score", "INTEGER"},
		},
	}
}

// P0fTableSpec is the passive OS fingerprint table.
func P0fTableSpec() TableSpec {
	return TableSpec{Prefix: ToolP0f, Columns: []Column{
		{"timestamp", "TEXT"}, {"src_ip", "TEXT"}, {"src_port", "TEXT"},
		{"dest_ip", "TEXT"}, {"dest_port", "TEXT"},
		{"os_name", "TEXT"}, {"os_flavor", "TEXT"}, {"os_version", "TEXT"},
		{"http_name", "TEXT"}, {"http_flavor", "TEXT"},
		{"link_type", "TEXT"}, {"distance", "TEXT"},
	}}
}

// NgrepTableSpec is the pattern-match table.
func NgrepTableSpec() TableSpec {
	return TableSpec{Prefix: ToolNgrep, Columns: []Column{
		{"timestamp", "TEXT"}, {"interface", "TEXT"},
		{"src_ip", "TEXT"}, {"src_port", "TEXT"},
		{"dest_ip", "TEXT"}, {"dest_port", "TEXT"},
		{"protocol", "TEXT"}, {"matched_data", "TEXT"},
	}}
}

// HttpryTableSpec is the HTTP transaction table.
func HttpryTableSpec() TableSpec {
	return TableSpec{Prefix: ToolHttpry, Columns: textCols(
		"timestamp", "src_ip", "dest_ip", "direction", "method", "host",
		"request_uri", "http_version", "status_code", "reason_phrase",
	)}
}

// ArgusTableSpec is the bidirectional flow table.
func ArgusTableSpec() TableSpec {
	return TableSpec{Prefix: ToolArgus, Columns: []Column{
		{"timestamp", "TEXT"}, {"duration", "REAL"}, {"protocol", "TEXT"},
		{"src_ip", "TEXT"}, {"src_port", "TEXT"},
		{"dest_ip", "TEXT"}, {"dest_port", "TEXT"},
		{"src_packets", "INTEGER"}, {"dest_packets", "INTEGER"},
		{"src_bytes", "INTEGER"}, {"dest_bytes", "INTEGER"},
		{"state", "TEXT"},
	}}
}

// NetsniffTableSpec is the decoded-PCAP frame table.
func NetsniffTableSpec() TableSpec {
	return TableSpec{Prefix: ToolNetsniff, Columns: []Column{
		{"timestamp", "TEXT"}, {"src_ip", "TEXT"}, {"src_port", "TEXT"},
		{"dest_ip", "TEXT"}, {"dest_port", "TEXT"}, {"protocol", "TEXT"},
		{"packet_length", "INTEGER"},
	}}
}

// IftopTableSpec is the per-connection bandwidth table.
func IftopTableSpec() TableSpec {
	return TableSpec{Prefix: ToolIftop, Columns: textCols(
		"timestamp", "src_ip", "src_port", "dest_ip", "dest_port",
		"direction", "tx_rate", "rx_rate", "total_rate",
	)}
}

// NethogsTableSpec is the per-process bandwidth table.
func NethogsTableSpec() TableSpec {
	return TableSpec{Prefix: ToolNethogs, Columns: []Column{
		{"timestamp", "TEXT"}, {"program", "TEXT"}, {"pid", "TEXT"},
		{"user", "TEXT"}, {"sent_kb", "REAL"}, {"received_kb", "REAL"},
	}}
}

// suricataEnvelope is the column set shared by every suricata event
// category except stats.
func suricataEnvelope() []Column {
	return []Column{
		{"timestamp", "TEXT"}, {"flow_id", "INTEGER"},
		{"src_ip", "TEXT"}, {"src_port", "INTEGER"},
		{"dest_ip", "TEXT"}, {"dest_port", "INTEGER"},
	}
}

// SuricataTableSpec returns the schema for one suricata event category.
func SuricataTableSpec(category string) TableSpec {
	prefix := ToolSuricata + "_" + category
	spec := TableSpec{Prefix: prefix, Columns: suricataEnvelope()}
	add := func(cols ...Column) {
		spec.Columns = append(spec.Columns, cols...)
	}
	switch category {
	case "alerts":
		spec.Columns = []Column{
			{"timestamp", "TEXT"}, {"flow_id", "INTEGER"}, {"event_type", "TEXT"},
			{"src_ip", "TEXT"}, {"src_port", "INTEGER"},
			{"dest_ip", "TEXT"}, {"dest_port", "INTEGER"},
		}
		add(Column{"proto", "TEXT"},
			Column{"alert_signature", "TEXT"}, Column{"alert_category", "TEXT"},
			Column{"alert_severity", "INTEGER"}, Column{"alert_signature_id", "INTEGER"},
			Column{"alert_gid", "INTEGER"}, Column{"alert_rev", "INTEGER"},
			Column{"alert_action", "TEXT"})
	case "http":
		add(Column{"http_hostname", "TEXT"}, Column{"http_url", "TEXT"},
			Column{"http_user_agent", "TEXT"}, Column{"http_method", "TEXT"},
			Column{"http_protocol", "TEXT"}, Column{"http_status", "INTEGER"},
			Column{"http_content_type", "TEXT"}, Column{"http_length", "INTEGER"})
	case "dns":
		add(Column{"dns_type", "TEXT"}, Column{"dns_id", "INTEGER"},
			Column{"dns_rrname", "TEXT"}, Column{"dns_rrtype", "TEXT"},
			Column{"dns_rcode", "TEXT"}, Column{"dns_rdata", "TEXT"},
			Column{"dns_ttl", "INTEGER"})
	case "tls":
		add(Column{"tls_subject", "TEXT"}, Column{"tls_issuerdn", "TEXT"},
			Column{"tls_serial", "TEXT"}, Column{"tls_fingerprint", "TEXT"},
			Column{"tls_sni", "TEXT"}, Column{"tls_version", "TEXT"},
			Column{"tls_notbefore", "TEXT"}, Column{"tls_notafter", "TEXT"})
	case "files":
		add(Column{"file_filename", "TEXT"}, Column{"file_magic", "TEXT"},
			Column{"file_state", "TEXT"}, Column{"file_stored", "INTEGER"},
			Column{"file_size", "INTEGER"}, Column{"file_tx_id", "INTEGER"})
	case "flow":
		add(Column{"proto", "TEXT"},
			Column{"flow_pkts_toserver", "INTEGER"}, Column{"flow_pkts_toclient", "INTEGER"},
			Column{"flow_bytes_toserver", "INTEGER"}, Column{"flow_bytes_toclient", "INTEGER"},
			Column{"flow_start", "TEXT"}, Column{"flow_end", "TEXT"},
			Column{"flow_age", "INTEGER"}, Column{"flow_state", "TEXT"},
			Column{"flow_reason", "TEXT"})
	case "ssh":
		add(Column{"ssh_client_software", "TEXT"}, Column{"ssh_server_software", "TEXT"},
			Column{"ssh_client_proto", "TEXT"}, Column{"ssh_server_proto", "TEXT"})
	case "smtp":
		add(Column{"smtp_helo", "TEXT"}, Column{"smtp_mail_from", "TEXT"},
			Column{"smtp_rcpt_to", "TEXT"})
	case "ftp":
		add(Column{"ftp_command", "TEXT"}, Column{"ftp_command_data", "TEXT"},
			Column{"ftp_reply", "TEXT"}, Column{"ftp_completion_code", "TEXT"})
	case "anomaly":
		add(Column{"anomaly_type", "TEXT"}, Column{"anomaly_event", "TEXT"},
			Column{"anomaly_code", "INTEGER"})
	case "stats":
		// Stats events carry no endpoints, only counters.
		spec.Columns = []Column{
			{"timestamp", "TEXT"}, {"uptime", "INTEGER"},
			{"packets", "INTEGER"}, {"bytes", "INTEGER"},
			{"packets_dropped", "INTEGER"}, {"invalid", "INTEGER"},
			{"decoder_pkts", "INTEGER"}, {"decoder_bytes", "INTEGER"},
			{"decoder_ipv4", "INTEGER"}, {"decoder_ipv6", "INTEGER"},
			{"decoder_tcp", "INTEGER"}, {"decoder_udp", "INTEGER"},
		}
	}
	return spec
}

// AllTableSpecs returns every capture table family the system writes.
// Bootstrap creates a _template table from each.
func AllTableSpecs() []TableSpec {
	specs := []TableSpec{
		TcpdumpTableSpec(),
		TsharkTableSpec(),
		P0fTableSpec(),
		NgrepTableSpec(),
		HttpryTableSpec(),
		ArgusTableSpec(),
		NetsniffTableSpec(),
		IftopTableSpec(),
		NethogsTableSpec(),
	}
	for _, cat := range SuricataCategories {
		specs = append(specs, SuricataTableSpec(cat))
	}
	return specs
}

// TcpdumpRecord is one fully decoded frame from a ring-buffer PCAP.
// Field order follows TcpdumpTableSpec column order.
type TcpdumpRecord struct {
	Timestamp   time.Time
	FrameNumber int64
	FrameTime   string
	FrameLength int64

	EthSrc  string
	EthDst  string
	EthType string

	SrcIP      string
	DestIP     string
	IPVersion  int64
	IPTTL      int64
	IPProtocol string
	IPLen      int64
	IPID       int64
	IPFlags    string

	SrcPort  int
	DestPort int
	Protocol string

	TCPSeq        int64
	TCPAckNum     int64
	TCPFlags      string
	TCPSyn        int
	TCPAck        int
	TCPFin        int
	TCPRst        int
	TCPPsh        int
	TCPUrg        int
	TCPWindowSize int64
	TCPStream     int64

	UDPLength int64

	DNSQuery       string
	DNSResponse    string
	HTTPMethod     string
	HTTPHost       string
	HTTPURI        string
	HTTPUserAgent  string
	HTTPStatusCode int64

	Info         string
	PacketData   string
	IsSuspicious int
	ThreatScore  int
}

func (r TcpdumpRecord) Row() Row {
	return Row{
		r.Timestamp.Format(TimestampLayout),
		r.FrameNumber, r.FrameTime, r.FrameLength,
		r.EthSrc, r.EthDst, r.EthType,
		r.SrcIP, r.DestIP,
		r.IPVersion, r.IPTTL, r.IPProtocol, r.IPLen, r.IPID, r.IPFlags,
		r.SrcPort, r.DestPort, r.Protocol,
		r.TCPSeq, r.TCPAckNum, r.TCPFlags,
		r.TCPSyn, r.TCPAck, r.TCPFin, r.TCPRst, r.TCPPsh, r.TCPUrg,
		r.TCPWindowSize, r.TCPStream,
		r.UDPLength,
		r.DNSQuery, r.DNSResponse,
		r.HTTPMethod, r.HTTPHost, r.HTTPURI, r.HTTPUserAgent, r.HTTPStatusCode,
		r.Info, r.PacketData,
		r.IsSuspicious, r.ThreatScore,
	}
}

// TsharkRecord is one frame from a live capture window.
// Field order follows TsharkTableSpec column order.
type TsharkRecord struct {
	Timestamp   time.Time
	FrameNumber int64
	FrameTime   string

	SrcIP    string
	SrcPort  int
	DestIP   string
	DestPort int
	Protocol string
	Length   int64
	Info     string

	TCPFlags      string
	TCPSyn        int
	TCPAck        int
	TCPFin        int
	TCPRst        int
	IPTTL         int64
	TCPWindowSize int64

	HTTPHost         string
	HTTPURI          string
	HTTPMethod       string
	HTTPUserAgent    string
	HTTPResponseCode int64

	DNSQuery     string
	DNSQueryType string
	DNSResponse  string

	TLSHandshakeType string
	TLSServerName    string

	DestCountry string
	DestCity    string

	IsSuspicious int
	ThreatScore  int
}

func (r TsharkRecord) Row() Row {
	return Row{
		r.Timestamp.Format(TimestampLayout),
		r.FrameNumber, r.FrameTime,
		r.SrcIP, r.SrcPort, r.DestIP, r.DestPort,
		r.Protocol, r.Length, r.Info,
		r.TCPFlags, r.TCPSyn, r.TCPAck, r.TCPFin, r.TCPRst,
		r.IPTTL, r.TCPWindowSize,
		r.HTTPHost, r.HTTPURI, r.HTTPMethod, r.HTTPUserAgent, r.HTTPResponseCode,
		r.DNSQuery, r.DNSQueryType, r.DNSResponse,
		r.TLSHandshakeType, r.TLSServerName,
		r.DestCountry, r.DestCity,
		r.IsSuspicious, r.ThreatScore,
	}
}

// FrameRecord is one decoded PCAP frame for the netsniff table.
type FrameRecord struct {
	Timestamp time.Time
	SrcIP     string
	SrcPort   string
	DestIP    string
	DestPort  string
	Protocol  string
	Length    int
}

func (r FrameRecord) Row() Row {
	return Row{r.Timestamp.Format(TimestampLayout), r.SrcIP, r.SrcPort,
		r.DestIP, r.DestPort, r.Protocol, r.Length}
}

// FingerprintRecord is one grouped p0f observation.
type FingerprintRecord struct {
	Timestamp  time.Time
	SrcIP      string
	SrcPort    string
	DestIP     string
	DestPort   string
	OSName     string
	OSFlavor   string
	OSVersion  string
	HTTPName   string
	HTTPFlavor string
	LinkType   string
	Distance   string
}

func (r FingerprintRecord) Row() Row {
	return Row{r.Timestamp.Format(TimestampLayout), r.SrcIP, r.SrcPort,
		r.DestIP, r.DestPort, r.OSName, r.OSFlavor, r.OSVersion,
		r.HTTPName, r.HTTPFlavor, r.LinkType, r.Distance}
}

// MatchRecord is one ngrep entry that hit an interesting pattern.
type MatchRecord struct {
	Timestamp   time.Time
	Interface   string
	SrcIP       string
	SrcPort     string
	DestIP      string
	DestPort    string
	Protocol    string
	MatchedData string
}

func (r MatchRecord) Row() Row {
	return Row{r.Timestamp.Format(TimestampLayout), r.Interface,
		r.SrcIP, r.SrcPort, r.DestIP, r.DestPort, r.Protocol, r.MatchedData}
}

// HTTPRecord is one httpry transaction line.
type HTTPRecord struct {
	Timestamp    string // httpry supplies its own formatted timestamp
	SrcIP        string
	DestIP       string
	Direction    string
	Method       string
	Host         string
	RequestURI   string
	HTTPVersion  string
	StatusCode   string
	ReasonPhrase string
}

func (r HTTPRecord) Row() Row {
	return Row{r.Timestamp, r.SrcIP, r.DestIP, r.Direction, r.Method,
		r.Host, r.RequestURI, r.HTTPVersion, r.StatusCode, r.ReasonPhrase}
}

// FlowRecord is one argus bidirectional flow.
type FlowRecord struct {
	Timestamp   string
	Duration    float64
	Protocol    string
	SrcIP       string
	SrcPort     string
	DestIP      string
	DestPort    string
	SrcPackets  int64
	DestPackets int64
	SrcBytes    int64
	DestBytes   int64
	State       string
}

func (r FlowRecord) Row() Row {
	return Row{r.Timestamp, r.Duration, r.Protocol, r.SrcIP, r.SrcPort,
		r.DestIP, r.DestPort, r.SrcPackets, r.DestPackets,
		r.SrcBytes, r.DestBytes, r.State}
}

// RateRecord is one iftop connection direction sample.
type RateRecord struct {
	Timestamp time.Time
	SrcIP     string
	SrcPort   string
	DestIP    string
	DestPort  string
	Direction string // TX or RX
	TxRate    string
	RxRate    string
	TotalRate string
}

func (r RateRecord) Row() Row {
	return Row{r.Timestamp.Format(TimestampLayout), r.SrcIP, r.SrcPort,
		r.DestIP, r.DestPort, r.Direction, r.TxRate, r.RxRate, r.TotalRate}
}

// ProcessRecord is one nethogs per-process bandwidth sample.
type ProcessRecord struct {
	Timestamp  time.Time
	Program    string
	PID        string
	User       string
	SentKB     float64
	ReceivedKB float64
}

func (r ProcessRecord) Row() Row {
	return Row{r.Timestamp.Format(TimestampLayout), r.Program, r.PID,
		r.User, r.SentKB, r.ReceivedKB}
}
