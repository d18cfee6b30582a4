package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRaOutput(t *testing.T) {
	output := `StartTime Dur Proto SrcAddr Sport Dir DstAddr Dport TotPkts TotBytes State
2025/03/01 10:30:01.123 0.045 tcp 192.168.1.50.51234 -> 93.184.216.34.443 10:8 1200:900 FIN
2025/03/01 10:30:02.000 1.500 udp 192.168.1.50.5353 <-> 224.0.0.251.5353 4 512 CON
2025/03/01 10:30:03.000 0.000 arp 192.168.1.1 who 192.168.1.50 1 60 INT
`
	now := time.Date(2025, 3, 1, 10, 31, 0, 0, time.UTC)
	records := parseRaOutput(output, now)
	require.Len(t, records, 3)

	tcp := records[0]
	assert.Equal(t, "2025-03-01 10:31:00", tcp.Timestamp)
	assert.Equal(t, 0.045, tcp.Duration)
	assert.Equal(t, "TCP", tcp.Protocol)
	assert.Equal(t, "192.168.1.50", tcp.SrcIP)
	assert.Equal(t, "51234", tcp.SrcPort)
	assert.Equal(t, "93.184.216.34", tcp.DestIP)
	assert.Equal(t, "443", tcp.DestPort)
	assert.Equal(t, int64(10), tcp.SrcPackets)
	assert.Equal(t, int64(8), tcp.DestPackets)
	assert.Equal(t, int64(1200), tcp.SrcBytes)
	assert.Equal(t, int64(900), tcp.DestBytes)
	assert.Equal(t, "FIN", tcp.State)

	udp := records[1]
	assert.Equal(t, "UDP", udp.Protocol)
	assert.Equal(t, int64(4), udp.SrcPackets, "single counters land on the source side")
	assert.Equal(t, int64(0), udp.DestPackets)

	arp := records[2]
	assert.Equal(t, "ARP", arp.Protocol)
	assert.Equal(t, "192.168.1.1", arp.SrcIP)
	assert.Empty(t, arp.SrcPort)
}

func TestParseRaLineSkipsShortLines(t *testing.T) {
	_, ok := parseRaLine("2025/03/01 10:30:01 0.1 tcp 1.2.3.4.80", time.Now())
	assert.False(t, ok)
}

func TestSplitFlowEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		wantIP   string
		wantPort string
	}{
		{"192.168.1.50.443", "192.168.1.50", "443"},
		{"192.168.1.50:443", "192.168.1.50", "443"},
		{"192.168.1.50", "192.168.1.50", ""},
		{"aa:bb:cc:dd:ee:ff", "aa:bb:cc:dd:ee:ff", ""},
	}
	for _, tt := range tests {
		ip, port := splitFlowEndpoint(tt.in)
		assert.Equal(t, tt.wantIP, ip, "input %q", tt.in)
		assert.Equal(t, tt.wantPort, port, "input %q", tt.in)
	}
}
