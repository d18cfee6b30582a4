package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// systemInstruction frames the model. The home-network guardrails matter:
// without them every model flags the monitor host's own capture tools as an
// intrusion and the reports become useless.
const systemInstruction = `You are a senior network security analyst reviewing telemetry from a home network security monitor.

Operating context you must assume:
- This is a HOME NETWORK observed from a single dedicated monitoring host.
- The monitoring host runs packet capture tools (tcpdump, tshark, p0f, ngrep, httpry, argus, netsniff-ng, iftop, nethogs, suricata). Their presence, their processes, and their traffic are EXPECTED. Do not flag the monitoring host or its capture tools as threats.
- Promiscuous-mode capture and port mirroring on the monitor are normal here, not an attack.
- Focus on genuine external threats, signs of compromised devices, and risky IoT behavior.

Respond with valid JSON only.`

// reportSchema is the exact output contract. Field names must match the
// stored report shape; anything else fails parsing and burns the cycle.
const reportSchema = `Respond with a single JSON object matching exactly this schema:
{
  "threat_level": "LOW|MEDIUM|HIGH|CRITICAL",
  "network_health_score": 0-100,
  "summary": "2-3 sentence overall assessment",
  "threats_detected": [
    {
      "severity": "LOW|MEDIUM|HIGH|CRITICAL",
      "category": "malware|intrusion|data_exfiltration|iot_compromise|reconnaissance|policy",
      "description": "what was observed and why it matters",
      "affected_ips": ["192.168.1.x"],
      "recommended_action": "concrete next step",
      "tool_source": "which capture tool surfaced it"
    }
  ],
  "network_insights": {
    "total_traffic_volume": "human readable estimate",
    "most_active_protocols": ["TCP", "DNS"],
    "suspicious_connections": "description or 'none observed'",
    "unusual_patterns": "description or 'none observed'",
    "bandwidth_anomalies": "description or 'none observed'"
  },
  "device_analysis": {
    "total_devices": 0,
    "operating_systems": {"Linux": 0},
    "suspicious_devices": ["ip or name"]
  },
  "http_analysis": {
    "plaintext_services": "assessment of unencrypted HTTP use",
    "suspicious_requests": "assessment or 'none observed'"
  },
  "recommendations": ["prioritized, actionable recommendations"]
}

Provide ONLY the JSON response, with no markdown fences and no text before or after it.`

// BuildPrompt serializes a snapshot into the numbered tool sections the
// analyst prompt is built from. Empty sections are stated as empty rather
// than omitted so the model does not invent data for missing tools.
func BuildPrompt(snap *Snapshot) string {
	var b strings.Builder
	b.WriteString("Analyze this network telemetry snapshot captured at ")
	b.WriteString(snap.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString(".\n")

	writeSection(&b, 1, "OS FINGERPRINTS (p0f)", snap.Fingerprints)
	writeSection(&b, 2, "PROTOCOL ANALYSIS (tshark)", snap.Tshark)
	writeSection(&b, 3, "PAYLOAD MATCHES (ngrep)", snap.Ngrep)
	writeSection(&b, 4, "HTTP TRAFFIC (httpry)", snap.Httpry)
	writeSection(&b, 5, "PACKET HEADERS (tcpdump)", snap.Tcpdump)
	writeSection(&b, 6, "FLOW RECORDS (argus)", snap.Argus)
	writeSection(&b, 7, "WIRE CAPTURE (netsniff-ng)", snap.Netsniff)
	writeSection(&b, 8, "BANDWIDTH BY HOST (iftop)", snap.Iftop)
	writeSection(&b, 9, "BANDWIDTH BY PROCESS (nethogs)", snap.Nethogs)
	writeSection(&b, 10, "IDS EVENTS (suricata)", snap.Suricata)
	writeSection(&b, 11, "ACTIVE NETWORK ENDPOINTS", snap.UniqueDevices)
	writeSection(&b, 12, "IOT DEVICES (last hour)", snap.IoT)
	writeSection(&b, 13, "OPEN SECURITY FINDINGS", snap.IoTSecurity)
	writeSection(&b, 14, "NETWORK SUMMARY", snap.Summary)

	b.WriteString("\n")
	b.WriteString(reportSchema)
	return b.String()
}

// writeSection emits one numbered block, JSON-serialized with indentation
// so row samples stay readable to the model.
func writeSection(b *strings.Builder, n int, title string, data any) {
	fmt.Fprintf(b, "\n=== %d. %s ===\n", n, title)
	if isEmptySection(data) {
		b.WriteString("(no data captured)\n")
		return
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		b.WriteString("(section unavailable)\n")
		return
	}
	b.Write(encoded)
	b.WriteString("\n")
}

func isEmptySection(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case *FingerprintSection:
		return v == nil
	case *ProtocolSection:
		return v == nil
	case *HTTPSection:
		return v == nil
	case *ToolSection:
		return v == nil
	case *SuricataSection:
		return v == nil
	case *IoTSummary:
		return v == nil
	case []string:
		return len(v) == 0
	case []domain.Vulnerability:
		return len(v) == 0
	}
	return false
}
