package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseP0fLinesMergesConnectionModules(t *testing.T) {
	lines := []string{
		"[2025/03/01 10:30:01] mod=syn|cli=192.168.1.50/51234|srv=93.184.216.34/443|subj=cli|os=Linux 3.11 and newer|dist=0|params=none|raw_sig=4:64+0:0:1460",
		"[2025/03/01 10:30:01] mod=mtu|cli=192.168.1.50/51234|srv=93.184.216.34/443|subj=cli|link=Ethernet or modem|raw_mtu=1500",
		"[2025/03/01 10:30:01] mod=syn+ack|cli=192.168.1.50/51234|srv=93.184.216.34/443|subj=srv|os=???|dist=12|params=none",
	}

	records := parseP0fLines(lines, time.Now())
	require.Len(t, records, 1, "same connection and timestamp collapse into one record")

	rec := records[0]
	assert.Equal(t, "192.168.1.50", rec.SrcIP)
	assert.Equal(t, "51234", rec.SrcPort)
	assert.Equal(t, "93.184.216.34", rec.DestIP)
	assert.Equal(t, "443", rec.DestPort)
	assert.Equal(t, "Linux 3.11 and", rec.OSName, "first three tokens")
	assert.Equal(t, "Linux", rec.OSFlavor)
	assert.Equal(t, "3.11 and newer", rec.OSVersion)
	assert.Equal(t, "Ethernet or modem", rec.LinkType)
	assert.Equal(t, "12", rec.Distance, "last dist seen wins")
}

func TestParseP0fLinesHTTPModules(t *testing.T) {
	lines := []string{
		"[2025/03/01 10:31:00] mod=http request|cli=192.168.1.50/51300|srv=93.184.216.34/80|subj=cli|app=Firefox 10.x or newer|lang=English",
		"[2025/03/01 10:31:00] mod=http response|cli=192.168.1.50/51300|srv=93.184.216.34/80|subj=srv|app=nginx 1.x",
	}

	records := parseP0fLines(lines, time.Now())
	require.Len(t, records, 1)
	assert.Equal(t, "Firefox 10.x or newer", records[0].HTTPFlavor, "client app is the browser")
	assert.Equal(t, "nginx 1.x", records[0].HTTPName, "server app is the service")
}

func TestParseP0fLinesSkipsUnknownOS(t *testing.T) {
	lines := []string{
		"[2025/03/01 10:32:00] mod=syn|cli=10.0.0.5/40000|srv=10.0.0.1/22|subj=cli|os=???|dist=1",
	}

	records := parseP0fLines(lines, time.Now())
	require.Len(t, records, 1)
	assert.Empty(t, records[0].OSName)
	assert.Equal(t, "1", records[0].Distance, "dist still recorded without an os match")
}

func TestParseP0fLinesSeparateConnections(t *testing.T) {
	lines := []string{
		"[2025/03/01 10:33:00] mod=syn|cli=10.0.0.5/40000|srv=10.0.0.1/22|subj=cli|os=Mac OS X",
		"[2025/03/01 10:33:05] mod=syn|cli=10.0.0.5/40001|srv=10.0.0.1/22|subj=cli|os=Windows 7 or 8",
		"not a p0f line",
		"",
	}

	records := parseP0fLines(lines, time.Now())
	require.Len(t, records, 2)
	assert.Equal(t, "40000", records[0].SrcPort, "first-seen order is preserved")
	assert.Equal(t, "Mac OS X", records[0].OSName)
	assert.Equal(t, "40001", records[1].SrcPort)
	assert.Equal(t, "Windows 7 or", records[1].OSName)
	assert.Equal(t, "7 or 8", records[1].OSVersion)
}
