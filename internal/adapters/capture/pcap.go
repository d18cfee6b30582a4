package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

const decodeTimeout = 120 * time.Second

// tsharkPacket mirrors one element of tshark's -T json output when -e
// field selectors are used: every selected field maps to a list of
// string values.
type tsharkPacket struct {
	Source struct {
		Layers map[string]json.RawMessage `json:"layers"`
	} `json:"_source"`
}

func decodePackets(data []byte) ([]tsharkPacket, error) {
	var packets []tsharkPacket
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &packets); err != nil {
		return nil, fmt.Errorf("decode tshark json: %w", err)
	}
	return packets, nil
}

// field returns the first value of a selected field, or "".
func (p tsharkPacket) field(key string) string {
	raw, ok := p.Source.Layers[key]
	if !ok {
		return ""
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}

func (p tsharkPacket) intField(key string) int64 {
	v := p.field(key)
	if v == "" {
		return 0
	}
	// tshark renders some numeric fields ("0x0012") in hex.
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0
	}
	return n
}

func (p tsharkPacket) flagField(key string) int {
	if p.field(key) == "1" {
		return 1
	}
	return 0
}

// tsharkAvailable reports whether the tshark binary is installed.
func tsharkAvailable() bool {
	_, err := exec.LookPath("tshark")
	return err == nil
}

func readPCAPJSON(ctx context.Context, path string, fields []string) ([]tsharkPacket, error) {
	args := []string{"-r", path, "-T", "json"}
	for _, f := range fields {
		args = append(args, "-e", f)
	}
	out, err := runCommand(ctx, decodeTimeout, "tshark", args...)
	if err != nil {
		return nil, err
	}
	return decodePackets(out)
}

// transportInfo is what the native decoder pulls from one frame.
type transportInfo struct {
	srcIP, destIP     string
	srcPort, destPort int
	protocol          string
}

func decodeTransport(pkt gopacket.Packet) transportInfo {
	var t transportInfo
	if ip4, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		t.srcIP = ip4.SrcIP.String()
		t.destIP = ip4.DstIP.String()
	} else if ip6, ok := pkt.Layer(layers.LayerTypeIPv6).(*layers.IPv6); ok {
		t.srcIP = ip6.SrcIP.String()
		t.destIP = ip6.DstIP.String()
	}
	switch {
	case pkt.Layer(layers.LayerTypeTCP) != nil:
		tcp := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP)
		t.srcPort = int(tcp.SrcPort)
		t.destPort = int(tcp.DstPort)
		t.protocol = "TCP"
	case pkt.Layer(layers.LayerTypeUDP) != nil:
		udp := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		t.srcPort = int(udp.SrcPort)
		t.destPort = int(udp.DstPort)
		t.protocol = "UDP"
	case pkt.Layer(layers.LayerTypeICMPv4) != nil:
		t.protocol = "ICMP"
	case pkt.Layer(layers.LayerTypeARP) != nil:
		t.protocol = "ARP"
	default:
		if last := pkt.Layers(); len(last) > 0 {
			t.protocol = last[len(last)-1].LayerType().String()
		}
	}
	return t
}

func tcpFlagString(tcp *layers.TCP) string {
	var flags []byte
	add := func(set bool, name string) {
		if set {
			if len(flags) > 0 {
				flags = append(flags, '|')
			}
			flags = append(flags, name...)
		}
	}
	add(tcp.SYN, "SYN")
	add(tcp.ACK, "ACK")
	add(tcp.FIN, "FIN")
	add(tcp.RST, "RST")
	add(tcp.PSH, "PSH")
	add(tcp.URG, "URG")
	return string(flags)
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// decodePCAPNative reads a capture file without tshark, using the
// gopacket decoders. HTTP fields stay empty; everything the packet
// layers carry is filled in the same shape the tshark path produces.
func decodePCAPNative(path string, maxFrames int, now time.Time) ([]domain.TcpdumpRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open pcap %s: %w", path, err)
	}

	var records []domain.TcpdumpRecord
	frameNumber := int64(0)
	for maxFrames <= 0 || len(records) < maxFrames {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		frameNumber++

		pkt := gopacket.NewPacket(data, reader.LinkType(), gopacket.Lazy)
		t := decodeTransport(pkt)

		rec := domain.TcpdumpRecord{
			Timestamp:   now,
			FrameNumber: frameNumber,
			FrameTime:   ci.Timestamp.Format(domain.TimestampLayout),
			FrameLength: int64(ci.Length),
			SrcIP:       t.srcIP,
			DestIP:      t.destIP,
			SrcPort:     t.srcPort,
			DestPort:    t.destPort,
			Protocol:    t.protocol,
		}

		if eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet); ok {
			rec.EthSrc = eth.SrcMAC.String()
			rec.EthDst = eth.DstMAC.String()
			rec.EthType = fmt.Sprintf("0x%04x", uint16(eth.EthernetType))
		}
		if ip4, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
			rec.IPVersion = 4
			rec.IPTTL = int64(ip4.TTL)
			rec.IPProtocol = ip4.Protocol.String()
			rec.IPLen = int64(ip4.Length)
			rec.IPID = int64(ip4.Id)
			rec.IPFlags = ip4.Flags.String()
		}
		if tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
			rec.TCPSeq = int64(tcp.Seq)
			rec.TCPAckNum = int64(tcp.Ack)
			rec.TCPFlags = tcpFlagString(tcp)
			rec.TCPSyn = boolFlag(tcp.SYN)
			rec.TCPAck = boolFlag(tcp.ACK)
			rec.TCPFin = boolFlag(tcp.FIN)
			rec.TCPRst = boolFlag(tcp.RST)
			rec.TCPPsh = boolFlag(tcp.PSH)
			rec.TCPUrg = boolFlag(tcp.URG)
			rec.TCPWindowSize = int64(tcp.Window)
		}
		if udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
			rec.UDPLength = int64(udp.Length)
		}
		if dns, ok := pkt.Layer(layers.LayerTypeDNS).(*layers.DNS); ok {
			if len(dns.Questions) > 0 {
				rec.DNSQuery = string(dns.Questions[0].Name)
			}
			if len(dns.Answers) > 0 {
				rec.DNSResponse = string(dns.Answers[0].Name)
			}
		}
		if rec.SrcIP != "" {
			rec.Info = fmt.Sprintf("%s %s:%d -> %s:%d",
				rec.Protocol, rec.SrcIP, rec.SrcPort, rec.DestIP, rec.DestPort)
		}

		scorePacket(&rec)
		records = append(records, rec)
	}
	return records, nil
}

// decodeFramesNative is the light netsniff variant of the native
// decoder: endpoints, protocol and length only.
func decodeFramesNative(path string, maxFrames int, now time.Time) ([]domain.FrameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open pcap %s: %w", path, err)
	}

	var records []domain.FrameRecord
	for maxFrames <= 0 || len(records) < maxFrames {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		pkt := gopacket.NewPacket(data, reader.LinkType(), gopacket.Lazy)
		t := decodeTransport(pkt)

		rec := domain.FrameRecord{
			Timestamp: now,
			SrcIP:     t.srcIP,
			DestIP:    t.destIP,
			Protocol:  t.protocol,
			Length:    ci.Length,
		}
		if t.srcPort > 0 {
			rec.SrcPort = strconv.Itoa(t.srcPort)
		}
		if t.destPort > 0 {
			rec.DestPort = strconv.Itoa(t.destPort)
		}
		records = append(records, rec)
	}
	return records, nil
}
