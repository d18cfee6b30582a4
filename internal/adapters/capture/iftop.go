package capture

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// IftopCollector samples per-connection bandwidth with a short iftop
// snapshot each cycle.
type IftopCollector struct {
	store    ports.CaptureStore
	iface    string
	interval time.Duration
	now      func() time.Time
}

// NewIftopCollector creates the bandwidth sampler. The interval is
// configurable because iftop is the most invasive of the snapshot
// tools.
func NewIftopCollector(store ports.CaptureStore, iface string, interval time.Duration) *IftopCollector {
	return &IftopCollector{
		store:    store,
		iface:    iface,
		interval: interval,
		now:      time.Now,
	}
}

func (c *IftopCollector) Tool() string            { return domain.ToolIftop }
func (c *IftopCollector) Interval() time.Duration { return c.interval }

func (c *IftopCollector) Collect(ctx context.Context) (int, error) {
	out, err := runCommand(ctx, 8*time.Second, "iftop",
		"-i", c.iface, "-t", "-n", "-P", "-s", "5")
	if err != nil && len(out) == 0 {
		return 0, err
	}

	records := parseIftopOutput(string(out), c.now())
	if len(records) > maxRowsPerCycle {
		records = records[:maxRowsPerCycle]
	}
	rows := make([]domain.Row, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	table, err := storeRows(ctx, c.store, domain.IftopTableSpec(), rows, c.now())
	if err != nil {
		return 0, err
	}
	if table != "" {
		slog.Info("stored bandwidth samples", "tool", c.Tool(), "table", table, "rows", len(rows))
	}
	return len(rows), nil
}

// parseIftopOutput reads iftop's text listing. Connections appear as
// line pairs: the sending side with => rates, then the remote side
// with <= rates. Each pair yields a TX and an RX record with both
// endpoints filled in.
func parseIftopOutput(output string, now time.Time) []domain.RateRecord {
	var records []domain.RateRecord
	var pending *domain.RateRecord

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "=") {
			pending = nil
			continue
		}

		switch {
		case strings.Contains(line, "=>"):
			parts := strings.SplitN(line, "=>", 2)
			host := lastField(parts[0])
			if host == "" {
				continue
			}
			srcIP, srcPort := splitEndpoint(host)
			dest, rates := splitRates(parts[1])
			rec := domain.RateRecord{
				Timestamp: now,
				SrcIP:     srcIP,
				SrcPort:   srcPort,
				Direction: "TX",
				TxRate:    rateAt(rates, 0),
				RxRate:    rateAt(rates, 1),
				TotalRate: rateAt(rates, 2),
			}
			if dest != "" {
				// Old single-line form with both endpoints present.
				rec.DestIP, rec.DestPort = splitEndpoint(dest)
				records = append(records, rec)
				pending = nil
				continue
			}
			pending = &rec

		case strings.Contains(line, "<="):
			parts := strings.SplitN(line, "<=", 2)
			host := lastField(parts[0])
			if host == "" {
				continue
			}
			remoteIP, remotePort := splitEndpoint(host)
			_, rates := splitRates(parts[1])
			if pending == nil {
				continue
			}
			pending.DestIP, pending.DestPort = remoteIP, remotePort
			records = append(records, *pending)
			records = append(records, domain.RateRecord{
				Timestamp: now,
				SrcIP:     remoteIP,
				SrcPort:   remotePort,
				DestIP:    pending.SrcIP,
				DestPort:  pending.SrcPort,
				Direction: "RX",
				TxRate:    rateAt(rates, 0),
				RxRate:    rateAt(rates, 1),
				TotalRate: rateAt(rates, 2),
			})
			pending = nil
		}
	}
	return records
}

// lastField returns the final whitespace-separated token, which skips
// iftop's leading connection index.
func lastField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// splitEndpoint separates host:port, leaving the port empty when the
// trailing segment is not numeric.
func splitEndpoint(s string) (host, port string) {
	i := strings.LastIndex(s, ":")
	if i <= 0 {
		return s, ""
	}
	if _, err := strconv.Atoi(s[i+1:]); err != nil {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// splitRates separates an optional leading host token from the rate
// columns. Rate tokens carry a bits-per-second unit suffix.
func splitRates(s string) (host string, rates []string) {
	for _, tok := range strings.Fields(s) {
		if isRateToken(tok) {
			rates = append(rates, tok)
		} else if host == "" && len(rates) == 0 {
			host = tok
		}
	}
	return host, rates
}

func isRateToken(tok string) bool {
	return strings.ContainsAny(tok, "KMG") || strings.Contains(tok, "b")
}

func rateAt(rates []string, i int) string {
	if i < len(rates) {
		return rates[i]
	}
	return ""
}

var _ ports.Collector = (*IftopCollector)(nil)
