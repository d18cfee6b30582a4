package capture

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// eveEvent is one line of suricata's eve.json stream. Only fields that
// end up in a capture table are decoded; everything else stays in the
// raw JSON.
type eveEvent struct {
	Timestamp string `json:"timestamp"`
	FlowID    int64  `json:"flow_id"`
	EventType string `json:"event_type"`
	SrcIP     string `json:"src_ip"`
	SrcPort   int64  `json:"src_port"`
	DestIP    string `json:"dest_ip"`
	DestPort  int64  `json:"dest_port"`
	Proto     string `json:"proto"`

	Alert *struct {
		Action      string `json:"action"`
		GID         int64  `json:"gid"`
		SignatureID int64  `json:"signature_id"`
		Rev         int64  `json:"rev"`
		Signature   string `json:"signature"`
		Category    string `json:"category"`
		Severity    int64  `json:"severity"`
	} `json:"alert"`

	HTTP *struct {
		Hostname    string `json:"hostname"`
		URL         string `json:"url"`
		UserAgent   string `json:"http_user_agent"`
		Method      string `json:"http_method"`
		Protocol    string `json:"protocol"`
		Status      int64  `json:"status"`
		ContentType string `json:"http_content_type"`
		Length      int64  `json:"length"`
	} `json:"http"`

	DNS *struct {
		Type   string `json:"type"`
		ID     int64  `json:"id"`
		RRName string `json:"rrname"`
		RRType string `json:"rrtype"`
		RCode  string `json:"rcode"`
		RData  string `json:"rdata"`
		TTL    int64  `json:"ttl"`
	} `json:"dns"`

	TLS *struct {
		Subject     string `json:"subject"`
		IssuerDN    string `json:"issuerdn"`
		Serial      string `json:"serial"`
		Fingerprint string `json:"fingerprint"`
		SNI         string `json:"sni"`
		Version     string `json:"version"`
		NotBefore   string `json:"notbefore"`
		NotAfter    string `json:"notafter"`
	} `json:"tls"`

	FileInfo *struct {
		Filename string `json:"filename"`
		Magic    string `json:"magic"`
		State    string `json:"state"`
		Stored   bool   `json:"stored"`
		Size     int64  `json:"size"`
		TxID     int64  `json:"tx_id"`
	} `json:"fileinfo"`

	Flow *struct {
		PktsToServer  int64  `json:"pkts_toserver"`
		PktsToClient  int64  `json:"pkts_toclient"`
		BytesToServer int64  `json:"bytes_toserver"`
		BytesToClient int64  `json:"bytes_toclient"`
		Start         string `json:"start"`
		End           string `json:"end"`
		Age           int64  `json:"age"`
		State         string `json:"state"`
		Reason        string `json:"reason"`
	} `json:"flow"`

	SSH *struct {
		Client eveSSHSide `json:"client"`
		Server eveSSHSide `json:"server"`
	} `json:"ssh"`

	SMTP *struct {
		Helo     string   `json:"helo"`
		MailFrom string   `json:"mail_from"`
		RcptTo   []string `json:"rcpt_to"`
	} `json:"smtp"`

	FTP *struct {
		Command        string   `json:"command"`
		CommandData    string   `json:"command_data"`
		Reply          []string `json:"reply"`
		CompletionCode []string `json:"completion_code"`
	} `json:"ftp"`

	Anomaly *struct {
		Type  string `json:"type"`
		Event string `json:"event"`
		Code  int64  `json:"code"`
	} `json:"anomaly"`

	Stats *struct {
		Uptime  int64 `json:"uptime"`
		Capture struct {
			KernelPackets int64 `json:"kernel_packets"`
			KernelDrops   int64 `json:"kernel_drops"`
		} `json:"capture"`
		Decoder struct {
			Pkts    int64 `json:"pkts"`
			Bytes   int64 `json:"bytes"`
			Invalid int64 `json:"invalid"`
			IPv4    int64 `json:"ipv4"`
			IPv6    int64 `json:"ipv6"`
			TCP     int64 `json:"tcp"`
			UDP     int64 `json:"udp"`
		} `json:"decoder"`
	} `json:"stats"`
}

type eveSSHSide struct {
	ProtoVersion    string `json:"proto_version"`
	SoftwareVersion string `json:"software_version"`
}

// envelope is the shared column prefix of every category but alerts
// and stats.
func (e *eveEvent) envelope() domain.Row {
	return domain.Row{e.Timestamp, e.FlowID, e.SrcIP, e.SrcPort, e.DestIP, e.DestPort}
}

// eveCategory maps an event_type to its table family. fileinfo events
// land in the files family; unknown types are dropped.
func eveCategory(eventType string) string {
	switch eventType {
	case "alert":
		return "alerts"
	case "fileinfo":
		return "files"
	case "http", "dns", "tls", "flow", "ssh", "smtp", "ftp", "anomaly", "stats":
		return eventType
	}
	return ""
}

// eveRow converts an event into the row shape of its category table.
// Field order must match SuricataTableSpec exactly.
func eveRow(category string, e *eveEvent) (domain.Row, bool) {
	switch category {
	case "alerts":
		if e.Alert == nil {
			return nil, false
		}
		return domain.Row{e.Timestamp, e.FlowID, e.EventType,
			e.SrcIP, e.SrcPort, e.DestIP, e.DestPort, e.Proto,
			e.Alert.Signature, e.Alert.Category, e.Alert.Severity,
			e.Alert.SignatureID, e.Alert.GID, e.Alert.Rev, e.Alert.Action}, true
	case "http":
		if e.HTTP == nil {
			return nil, false
		}
		return append(e.envelope(),
			e.HTTP.Hostname, e.HTTP.URL, e.HTTP.UserAgent, e.HTTP.Method,
			e.HTTP.Protocol, e.HTTP.Status, e.HTTP.ContentType, e.HTTP.Length), true
	case "dns":
		if e.DNS == nil {
			return nil, false
		}
		return append(e.envelope(),
			e.DNS.Type, e.DNS.ID, e.DNS.RRName, e.DNS.RRType,
			e.DNS.RCode, e.DNS.RData, e.DNS.TTL), true
	case "tls":
		if e.TLS == nil {
			return nil, false
		}
		return append(e.envelope(),
			e.TLS.Subject, e.TLS.IssuerDN, e.TLS.Serial, e.TLS.Fingerprint,
			e.TLS.SNI, e.TLS.Version, e.TLS.NotBefore, e.TLS.NotAfter), true
	case "files":
		if e.FileInfo == nil {
			return nil, false
		}
		stored := 0
		if e.FileInfo.Stored {
			stored = 1
		}
		return append(e.envelope(),
			e.FileInfo.Filename, e.FileInfo.Magic, e.FileInfo.State,
			stored, e.FileInfo.Size, e.FileInfo.TxID), true
	case "flow":
		if e.Flow == nil {
			return nil, false
		}
		return append(e.envelope(), e.Proto,
			e.Flow.PktsToServer, e.Flow.PktsToClient,
			e.Flow.BytesToServer, e.Flow.BytesToClient,
			e.Flow.Start, e.Flow.End, e.Flow.Age, e.Flow.State, e.Flow.Reason), true
	case "ssh":
		if e.SSH == nil {
			return nil, false
		}
		return append(e.envelope(),
			e.SSH.Client.SoftwareVersion, e.SSH.Server.SoftwareVersion,
			e.SSH.Client.ProtoVersion, e.SSH.Server.ProtoVersion), true
	case "smtp":
		if e.SMTP == nil {
			return nil, false
		}
		return append(e.envelope(),
			e.SMTP.Helo, e.SMTP.MailFrom, strings.Join(e.SMTP.RcptTo, ",")), true
	case "ftp":
		if e.FTP == nil {
			return nil, false
		}
		return append(e.envelope(),
			e.FTP.Command, e.FTP.CommandData,
			strings.Join(e.FTP.Reply, ","), strings.Join(e.FTP.CompletionCode, ",")), true
	case "anomaly":
		if e.Anomaly == nil {
			return nil, false
		}
		return append(e.envelope(),
			e.Anomaly.Type, e.Anomaly.Event, e.Anomaly.Code), true
	case "stats":
		if e.Stats == nil {
			return nil, false
		}
		d := e.Stats.Decoder
		return domain.Row{e.Timestamp, e.Stats.Uptime,
			e.Stats.Capture.KernelPackets, d.Bytes,
			e.Stats.Capture.KernelDrops, d.Invalid,
			d.Pkts, d.Bytes, d.IPv4, d.IPv6, d.TCP, d.UDP}, true
	}
	return nil, false
}

// parseEveLines fans a slice of eve.json lines out into per-category
// row batches. Malformed lines are skipped.
func parseEveLines(lines []string) domain.Batch {
	batch := domain.Batch{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var event eveEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		category := eveCategory(event.EventType)
		if category == "" {
			continue
		}
		if row, ok := eveRow(category, &event); ok {
			batch.Append(domain.ToolSuricata+"_"+category, row)
		}
	}
	return batch
}

// SuricataCollector tails suricata's eve.json and fans events out into
// per-category run tables. Suricata itself runs under its own runner;
// this only consumes the log.
type SuricataCollector struct {
	store     ports.CaptureStore
	positions *OffsetMapStore
	evePath   string
	now       func() time.Time
}

func NewSuricataCollector(store ports.CaptureStore, positions *OffsetMapStore, evePath string) *SuricataCollector {
	return &SuricataCollector{
		store:     store,
		positions: positions,
		evePath:   evePath,
		now:       time.Now,
	}
}

func (c *SuricataCollector) Tool() string            { return domain.ToolSuricata }
func (c *SuricataCollector) Interval() time.Duration { return 15 * time.Second }

func (c *SuricataCollector) Collect(ctx context.Context) (int, error) {
	offset := c.positions.OffsetFor(ctx, c.evePath)
	lines, newOffset, _, err := ReadLines(c.evePath, offset, maxRowsPerCycle)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, nil
	}

	batch := parseEveLines(lines)
	startedAt := c.now()
	total := 0
	for _, category := range domain.SuricataCategories {
		rows := batch[domain.ToolSuricata+"_"+category]
		if len(rows) == 0 {
			continue
		}
		table, err := storeRows(ctx, c.store, domain.SuricataTableSpec(category), rows, startedAt)
		if err != nil {
			return total, err
		}
		total += len(rows)
		slog.Info("stored suricata events", "category", category, "table", table, "rows", len(rows))
	}

	// The offset moves only after every category landed, so a failed
	// cycle replays the same window.
	if err := c.positions.SetOffsetFor(ctx, c.evePath, newOffset); err != nil {
		return total, err
	}
	return total, nil
}

var _ ports.Collector = (*SuricataCollector)(nil)
