package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

const eveSample = `{"timestamp":"2025-03-01T10:30:01.000000+0100","flow_id":101,"event_type":"alert","src_ip":"203.0.113.7","src_port":55000,"dest_ip":"192.168.1.50","dest_port":22,"proto":"TCP","alert":{"action":"allowed","gid":1,"signature_id":2001219,"rev":20,"signature":"ET SCAN Potential SSH Scan","category":"Attempted Information Leak","severity":2}}
{"timestamp":"2025-03-01T10:30:02.000000+0100","flow_id":102,"event_type":"dns","src_ip":"192.168.1.23","src_port":40000,"dest_ip":"8.8.8.8","dest_port":53,"proto":"UDP","dns":{"type":"query","id":31337,"rrname":"example.com","rrtype":"A"}}
{"timestamp":"2025-03-01T10:30:03.000000+0100","flow_id":103,"event_type":"fileinfo","src_ip":"192.168.1.50","src_port":51234,"dest_ip":"93.184.216.34","dest_port":80,"proto":"TCP","fileinfo":{"filename":"/setup.exe","magic":"PE32 executable","state":"CLOSED","stored":true,"size":204800,"tx_id":0}}
{"timestamp":"2025-03-01T10:30:05.000000+0100","event_type":"stats","stats":{"uptime":3600,"capture":{"kernel_packets":91101,"kernel_drops":12},"decoder":{"pkts":91089,"bytes":72153600,"invalid":3,"ipv4":90000,"ipv6":89,"tcp":61000,"udp":29000}}}
{"timestamp":"2025-03-01T10:30:06.000000+0100","event_type":"netflow","src_ip":"1.2.3.4"}
not json at all`

func TestEveCategory(t *testing.T) {
	assert.Equal(t, "alerts", eveCategory("alert"))
	assert.Equal(t, "files", eveCategory("fileinfo"))
	assert.Equal(t, "dns", eveCategory("dns"))
	assert.Equal(t, "stats", eveCategory("stats"))
	assert.Empty(t, eveCategory("netflow"), "unmapped types are dropped")
}

func TestParseEveLines(t *testing.T) {
	batch := parseEveLines(splitLines(eveSample))

	require.Len(t, batch, 4, "one prefix per seen category")
	assert.Equal(t, 4, batch.Size(), "unmapped and malformed lines are dropped")
	assert.Len(t, batch["suricata_alerts"], 1)
	assert.Len(t, batch["suricata_dns"], 1)
	assert.Len(t, batch["suricata_files"], 1)
	assert.Len(t, batch["suricata_stats"], 1)

	alert := batch["suricata_alerts"][0]
	require.Len(t, alert, len(domain.SuricataTableSpec("alerts").Columns))
	assert.Equal(t, "2025-03-01T10:30:01.000000+0100", alert[0])
	assert.Equal(t, int64(101), alert[1])
	assert.Equal(t, "alert", alert[2])
	assert.Equal(t, "203.0.113.7", alert[3])
	assert.Equal(t, "ET SCAN Potential SSH Scan", alert[8])
	assert.Equal(t, int64(2), alert[10], "severity")
	assert.Equal(t, int64(2001219), alert[11], "signature id")
	assert.Equal(t, "allowed", alert[14])

	dns := batch["suricata_dns"][0]
	require.Len(t, dns, len(domain.SuricataTableSpec("dns").Columns))
	assert.Equal(t, "query", dns[6])
	assert.Equal(t, int64(31337), dns[7])
	assert.Equal(t, "example.com", dns[8])

	file := batch["suricata_files"][0]
	require.Len(t, file, len(domain.SuricataTableSpec("files").Columns))
	assert.Equal(t, "/setup.exe", file[6])
	assert.Equal(t, 1, file[9], "stored flag persists as integer")
	assert.Equal(t, int64(204800), file[10])

	stats := batch["suricata_stats"][0]
	require.Len(t, stats, len(domain.SuricataTableSpec("stats").Columns))
	assert.Equal(t, int64(3600), stats[1], "uptime")
	assert.Equal(t, int64(91101), stats[2], "kernel packets")
	assert.Equal(t, int64(12), stats[4], "kernel drops")
	assert.Equal(t, int64(91089), stats[6], "decoder pkts")
}

func TestParseEveLinesSkipsEventsWithoutPayload(t *testing.T) {
	// event_type claims alert but the alert object is missing.
	batch := parseEveLines([]string{`{"timestamp":"t","event_type":"alert","src_ip":"1.2.3.4"}`})
	assert.Zero(t, batch.Size())
}

func TestSuricataCollectorCommitsOffsetAfterStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	evePath := filepath.Join(dir, "eve.json")
	require.NoError(t, os.WriteFile(evePath, []byte(eveSample+"\n"), 0644))

	store := newFakeStore()
	positions := NewOffsetMapStore(filepath.Join(dir, "suricata.json"))
	c := NewSuricataCollector(store, positions, evePath)
	c.now = func() time.Time { return time.Date(2025, 3, 1, 10, 31, 0, 0, time.UTC) }

	rows, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, rows)

	// All category tables share the cycle's run timestamp.
	assert.Equal(t, 1, store.rowCount("suricata_alerts"))
	assert.Equal(t, 1, store.rowCount("suricata_dns"))
	assert.Equal(t, 1, store.rowCount("suricata_files"))
	latest, err := store.LatestTable(ctx, "suricata_alerts")
	require.NoError(t, err)
	assert.Equal(t, "suricata_alerts_20250301_103100", latest)

	// Nothing new: the offset stuck past the consumed lines.
	rows, err = c.Collect(ctx)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestSuricataCollectorHoldsOffsetOnFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	evePath := filepath.Join(dir, "eve.json")
	require.NoError(t, os.WriteFile(evePath, []byte(eveSample+"\n"), 0644))

	store := newFakeStore()
	store.failInsert = true
	positions := NewOffsetMapStore(filepath.Join(dir, "suricata.json"))
	c := NewSuricataCollector(store, positions, evePath)

	_, err := c.Collect(ctx)
	require.Error(t, err)
	assert.Zero(t, positions.OffsetFor(ctx, evePath),
		"a failed cycle must replay the same window")

	store.failInsert = false
	rows, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, rows)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
