package capture

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPCAP serializes one TCP SYN frame into a fresh pcap file.
func writeTestPCAP(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture_000.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		DstMAC:       net.HardwareAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{192, 168, 1, 50},
		DstIP:    net.IP{93, 184, 216, 34},
	}
	tcp := &layers.TCP{
		SrcPort: 51234,
		DstPort: 443,
		SYN:     true,
		Window:  64240,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp))

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
		CaptureLength: len(data),
		Length:        len(data),
	}
	require.NoError(t, w.WritePacket(ci, data))
	return path
}

func TestDecodePCAPNative(t *testing.T) {
	path := writeTestPCAP(t)
	now := time.Date(2025, 3, 1, 10, 30, 5, 0, time.UTC)

	records, err := decodePCAPNative(path, 0, now)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int64(1), rec.FrameNumber)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", rec.EthSrc)
	assert.Equal(t, "0x0800", rec.EthType)
	assert.Equal(t, "192.168.1.50", rec.SrcIP)
	assert.Equal(t, "93.184.216.34", rec.DestIP)
	assert.Equal(t, 51234, rec.SrcPort)
	assert.Equal(t, 443, rec.DestPort)
	assert.Equal(t, "TCP", rec.Protocol)
	assert.Equal(t, int64(64), rec.IPTTL)
	assert.Equal(t, 1, rec.TCPSyn)
	assert.Equal(t, "SYN", rec.TCPFlags)
	assert.Equal(t, int64(64240), rec.TCPWindowSize)
	assert.Equal(t, "TCP 192.168.1.50:51234 -> 93.184.216.34:443", rec.Info)
	assert.Equal(t, 0, rec.ThreatScore)
}

func TestDecodeFramesNative(t *testing.T) {
	path := writeTestPCAP(t)

	records, err := decodeFramesNative(path, 0, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "192.168.1.50", rec.SrcIP)
	assert.Equal(t, "51234", rec.SrcPort)
	assert.Equal(t, "443", rec.DestPort)
	assert.Equal(t, "TCP", rec.Protocol)
	assert.Greater(t, rec.Length, 0)
	assert.Len(t, rec.Row(), 7)
}

func TestDecodePCAPNativeFrameLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for i := 0; i < 5; i++ {
		buf := gopacket.NewSerializeBuffer()
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, byte(i)},
			DstMAC:       net.HardwareAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66},
			EthernetType: layers.EthernetTypeARP,
		}
		arp := &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   eth.SrcMAC,
			SourceProtAddress: []byte{192, 168, 1, byte(10 + i)},
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    []byte{192, 168, 1, 1},
		}
		require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, arp))
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		require.NoError(t, w.WritePacket(ci, buf.Bytes()))
	}
	require.NoError(t, f.Close())

	records, err := decodePCAPNative(path, 3, time.Now())
	require.NoError(t, err)
	assert.Len(t, records, 3, "the frame limit caps the decode")
	assert.Equal(t, "ARP", records[0].Protocol)
}
