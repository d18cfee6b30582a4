package scanning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	defaultInterval = 5 * time.Minute

	// Devices silent longer than this are skipped; probing a host that
	// left the network only burns the sweep budget.
	activeWindow = time.Hour

	// The dedup window: an unresolved finding of the same type suppresses
	// a repeat insert for this long.
	dedupWindow = 24 * time.Hour

	suspiciousConnThreshold = 10
)

// probePorts is the fixed probe set. 443 is probed only so the HTTP-only
// check can tell "no TLS" from "not probed"; it feeds no finding itself.
var probePorts = []int{21, 23, 80, 443, 445, 1433, 2323, 3306, 3389, 5900, 8080, 8443, 8888}

var (
	telnetPorts     = map[int]bool{23: true, 2323: true}
	riskyPorts      = map[int]bool{21: true, 135: true, 139: true, 445: true, 1433: true, 3389: true, 5432: true, 3306: true}
	defaultWebPorts = map[int]bool{80: true, 8080: true, 8443: true, 8888: true}
)

var serviceNames = map[int]string{
	21: "FTP", 23: "Telnet", 135: "RPC", 139: "NetBIOS", 445: "SMB",
	1433: "MS-SQL", 2323: "Telnet-alt", 3306: "MySQL", 3389: "RDP",
	5432: "PostgreSQL", 5900: "VNC",
}

// Category fragments and vendor names that mark a device as an IoT scan
// target even when classification left its type at Computer or Unknown.
var (
	iotCategoryHints = []string{"camera", "tv", "speaker", "thermostat", "plug", "sensor"}
	iotVendorHints   = []string{"amazon", "google", "samsung", "lg electronics", "sony", "tp-link", "belkin", "netgear", "d-link"}
)

// Scanner sweeps active IoT devices on a fixed interval: TCP probes for
// exposed services, findings into the vulnerability store, and one
// behavioral sample per device per sweep.
type Scanner struct {
	registry ports.DeviceRegistry
	devices  ports.DeviceStore
	vulns    ports.VulnerabilityStore
	iot      ports.IoTStore
	queries  ports.CaptureQueries
	notifier ports.EventNotifier
	prober   *Prober

	interval time.Duration
	now      func() time.Time
}

func NewScanner(registry ports.DeviceRegistry, devices ports.DeviceStore, vulns ports.VulnerabilityStore, iot ports.IoTStore, queries ports.CaptureQueries, notifier ports.EventNotifier, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scanner{
		registry: registry,
		devices:  devices,
		vulns:    vulns,
		iot:      iot,
		queries:  queries,
		notifier: notifier,
		prober:   NewProber(),
		interval: interval,
		now:      time.Now,
	}
}

// Run executes sweeps until the context is canceled. The first sweep
// starts immediately.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if n, err := s.Sweep(ctx); err != nil {
			slog.Error("iot sweep failed", "error", err)
		} else if n > 0 {
			slog.Debug("iot sweep complete", "devices", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep scans every active IoT target once. Returns the number of
// devices scanned.
func (s *Scanner) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-activeWindow)

	scanned := 0
	for _, d := range s.registry.GetAllDevices() {
		if ctx.Err() != nil {
			return scanned, ctx.Err()
		}
		if d.IP == "" || !isIoTTarget(d) || d.LastSeen.Before(cutoff) {
			continue
		}
		s.scanDevice(ctx, d, now)
		scanned++
	}
	return scanned, nil
}

func isIoTTarget(d domain.Device) bool {
	if d.Type == domain.TypeIoT {
		return true
	}
	category := strings.ToLower(d.Category)
	for _, hint := range iotCategoryHints {
		if strings.Contains(category, hint) {
			return true
		}
	}
	vendor := strings.ToLower(d.Vendor)
	for _, hint := range iotVendorHints {
		if strings.Contains(vendor, hint) {
			return true
		}
	}
	return false
}

func (s *Scanner) scanDevice(ctx context.Context, d domain.Device, now time.Time) {
	open := s.prober.Scan(ctx, d.IP, probePorts)
	s.recordOpenPorts(ctx, d, open)

	for _, finding := range s.findings(ctx, d, open) {
		s.record(ctx, d, finding, now)
	}

	if err := s.analyzeBehavior(ctx, d, now); err != nil {
		slog.Warn("behavior analysis failed", "device", d.IP, "error", err)
	}
}

// recordOpenPorts refreshes the device's open-port list in the registry
// and the device table. An all-closed probe keeps the last known list.
func (s *Scanner) recordOpenPorts(ctx context.Context, d domain.Device, open []int) {
	if len(open) == 0 {
		return
	}
	parts := make([]string, len(open))
	for i, port := range open {
		parts[i] = strconv.Itoa(port)
	}
	csv := strings.Join(parts, ",")
	if csv == d.OpenPorts {
		return
	}

	merged, _ := s.registry.ProcessDevice(domain.Device{
		MAC:       d.MAC,
		IP:        d.IP,
		OpenPorts: csv,
		LastSeen:  d.LastSeen,
	})
	if s.devices != nil {
		if err := s.devices.SaveDevice(ctx, merged); err != nil {
			slog.Warn("open-port update failed", "device", d.IP, "error", err)
		}
	}
}

// findings evaluates the probe results and capture history into zero or
// more vulnerability findings for one device.
func (s *Scanner) findings(ctx context.Context, d domain.Device, open []int) []domain.Vulnerability {
	openSet := make(map[int]bool, len(open))
	for _, port := range open {
		openSet[port] = true
	}

	var out []domain.Vulnerability

	if telnet := filterPorts(open, telnetPorts); len(telnet) > 0 {
		out = append(out, domain.Vulnerability{
			Type:             "telnet_enabled",
			Severity:         domain.SeverityHigh,
			Description:      fmt.Sprintf("Telnet open on port(s) %s", joinPorts(telnet)),
			Recommendation:   "Disable telnet immediately. Use SSH with key authentication if remote access is needed.",
			ThreatIndicators: portIndicator(telnet),
		})
	}

	if risky := filterPorts(open, riskyPorts); len(risky) > 0 {
		out = append(out, domain.Vulnerability{
			Type:             "risky_open_port",
			Severity:         domain.SeverityMedium,
			Description:      fmt.Sprintf("Potentially vulnerable services exposed: %s", describePorts(risky)),
			Recommendation:   "Review whether these services need to be exposed and restrict access with firewall rules.",
			ThreatIndicators: portIndicator(risky),
		})
	}

	if web := filterPorts(open, defaultWebPorts); len(web) > 0 {
		out = append(out, domain.Vulnerability{
			Type:             "default_credentials",
			Severity:         domain.SeverityHigh,
			Description:      "Device may be using default credentials on its web interface",
			Recommendation:   "Change the default username and password immediately.",
			ThreatIndicators: portIndicator(web),
		})
	}

	if openSet[80] && !openSet[443] {
		out = append(out, domain.Vulnerability{
			Type:           "unencrypted_communication",
			Severity:       domain.SeverityMedium,
			Description:    "Device serves HTTP without a TLS counterpart",
			Recommendation: "Enable encryption for all communications.",
		})
	}

	if s.queries != nil {
		count, err := s.queries.ExternalSuspiciousConnCount(ctx, d.IP, s.now().Add(-activeWindow))
		if err != nil {
			slog.Warn("suspicious connection query failed", "device", d.IP, "error", err)
		} else if count > suspiciousConnThreshold {
			indicator, _ := json.Marshal(map[string]int{"connection_count": count})
			out = append(out, domain.Vulnerability{
				Type:             "suspicious_communication",
				Severity:         domain.SeverityHigh,
				Description:      "Device making suspicious outbound connections",
				Recommendation:   "Investigate and block the suspicious connections.",
				ThreatIndicators: string(indicator),
			})
		}
	}

	switch d.Category {
	case domain.CategoryCamera:
		out = append(out, domain.Vulnerability{
			Type:           "camera_privacy_risk",
			Severity:       domain.SeverityHigh,
			Description:    "Camera device detected - potential privacy risk",
			Recommendation: "Ensure the camera is secured and not reachable from the internet.",
		})
	case domain.CategorySmartTV:
		out = append(out, domain.Vulnerability{
			Type:           "smart_tv_data_collection",
			Severity:       domain.SeverityMedium,
			Description:    "Smart TV may be collecting viewing data",
			Recommendation: "Review privacy settings and disable data collection.",
		})
	}

	return out
}

// record inserts one finding unless an unresolved finding of the same
// type exists for the device inside the dedup window.
func (s *Scanner) record(ctx context.Context, d domain.Device, finding domain.Vulnerability, now time.Time) {
	recent, err := s.vulns.HasRecentVulnerability(ctx, d.IP, finding.Type, now.Add(-dedupWindow))
	if err != nil {
		slog.Warn("vulnerability dedup check failed", "device", d.IP, "type", finding.Type, "error", err)
		return
	}
	if recent {
		return
	}

	finding.DeviceIP = d.IP
	finding.DeviceMAC = d.MAC
	finding.DetectedAt = now
	if err := s.vulns.SaveVulnerability(ctx, &finding); err != nil {
		slog.Error("finding insert failed", "device", d.IP, "type", finding.Type, "error", err)
		return
	}

	slog.Info("vulnerability detected",
		"device", d.IP,
		"type", finding.Type,
		"severity", finding.Severity)
	if s.notifier != nil {
		s.notifier.NotifyVulnerability(finding)
	}
}

func filterPorts(open []int, set map[int]bool) []int {
	var hits []int
	for _, port := range open {
		if set[port] {
			hits = append(hits, port)
		}
	}
	return hits
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, port := range ports {
		parts[i] = strconv.Itoa(port)
	}
	return strings.Join(parts, ", ")
}

func describePorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, port := range ports {
		name := serviceNames[port]
		if name == "" {
			name = "Unknown"
		}
		parts[i] = fmt.Sprintf("%d(%s)", port, name)
	}
	return strings.Join(parts, ", ")
}

func portIndicator(ports []int) string {
	indicator, _ := json.Marshal(map[string][]int{"open_ports": ports})
	return string(indicator)
}
