package alerting

import (
	"context"
	"fmt"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// Remote ports commonly carrying command-and-control traffic.
var c2Ports = map[string]bool{
	"6667": true,
	"8080": true,
	"8443": true,
	"9001": true,
	"4444": true,
	"9999": true,
}

// detectPortScans flags local sources touching more distinct ports than
// the threshold allows.
func (e *Engine) detectPortScans(ctx context.Context, rule domain.AlertRule) (int, error) {
	counts, err := e.queries.DistinctPortCounts(ctx, e.now().Add(-ruleWindow(rule)))
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, c := range counts {
		if !domain.IsLocalIP(c.SourceIP) {
			continue
		}
		if float64(c.PortCount) <= rule.ThresholdValue {
			continue
		}
		created, err := e.raise(ctx, rule, domain.SecurityAlert{
			AlertType:   "port_scan",
			Severity:    rule.Severity,
			Title:       fmt.Sprintf("Port Scan Detected from %s", c.SourceIP),
			Description: fmt.Sprintf("Device %s contacted %d distinct ports within the detection window", c.SourceIP, c.PortCount),
			SourceIP:    c.SourceIP,
			ThreatIndicators: []string{
				fmt.Sprintf("%d ports scanned", c.PortCount),
				"SYN scan pattern",
			},
			RemediationSteps: []string{
				"Block the source IP",
				"Investigate the device for malware",
				"Check whether this is an authorized security scan",
			},
		}, c.SourceIP)
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

// detectBruteForce flags sources with repeated failed authentication
// events. Trips at the threshold, not above it: five failed logins is
// the attack, not the warning.
func (e *Engine) detectBruteForce(ctx context.Context, rule domain.AlertRule) (int, error) {
	counts, err := e.queries.FailedAuthCounts(ctx, e.now().Add(-ruleWindow(rule)))
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, c := range counts {
		if float64(c.Failures) < rule.ThresholdValue {
			continue
		}
		created, err := e.raise(ctx, rule, domain.SecurityAlert{
			AlertType:   "brute_force",
			Severity:    rule.Severity,
			Title:       fmt.Sprintf("Brute Force Attack from %s", c.SourceIP),
			Description: fmt.Sprintf("%d failed authentication attempts from %s within the detection window", c.Failures, c.SourceIP),
			SourceIP:    c.SourceIP,
			ThreatIndicators: []string{
				fmt.Sprintf("%d failed logins", c.Failures),
			},
			RemediationSteps: []string{
				"Block the source IP",
				"Rotate credentials on the targeted service",
				"Enable key-based authentication where possible",
			},
		}, c.SourceIP)
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

// detectUnusualOutbound flags local devices pushing more data to
// external hosts than the threshold allows.
func (e *Engine) detectUnusualOutbound(ctx context.Context, rule domain.AlertRule) (int, error) {
	counts, err := e.queries.OutboundBytes(ctx, e.now().Add(-ruleWindow(rule)))
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, c := range counts {
		if float64(c.TotalBytes) <= rule.ThresholdValue {
			continue
		}
		mb := float64(c.TotalBytes) / (1024 * 1024)
		created, err := e.raise(ctx, rule, domain.SecurityAlert{
			AlertType:   "unusual_traffic",
			Severity:    rule.Severity,
			Title:       fmt.Sprintf("Unusual Outbound Traffic from %s", c.SourceIP),
			Description: fmt.Sprintf("Device %s sent %.1f MB to external hosts within the detection window", c.SourceIP, mb),
			SourceIP:    c.SourceIP,
			ThreatIndicators: []string{
				fmt.Sprintf("%.1f MB outbound", mb),
			},
			RemediationSteps: []string{
				"Review what data is being transferred",
				"Check the device for malware",
				"Watch for continued exfiltration",
			},
		}, c.SourceIP)
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

// detectIoTCompromise flags IoT devices accumulating unresolved severe
// findings. The cheap count gates the detailed lookup.
func (e *Engine) detectIoTCompromise(ctx context.Context, rule domain.AlertRule) (int, error) {
	raised := 0
	for _, d := range e.registry.GetAllDevices() {
		if d.Type != domain.TypeIoT || d.IP == "" {
			continue
		}
		severe, err := e.vulns.CountUnresolvedSevere(ctx, d.IP)
		if err != nil {
			return raised, err
		}
		if float64(severe) < rule.ThresholdValue {
			continue
		}

		indicators := []string{fmt.Sprintf("%d unresolved severe findings", severe)}
		if open, err := e.vulns.UnresolvedByDevice(ctx, d.IP); err == nil {
			for _, v := range open {
				if v.Severity == domain.SeverityCritical || v.Severity == domain.SeverityHigh {
					indicators = append(indicators, v.Type)
				}
			}
		}

		created, err := e.raise(ctx, rule, domain.SecurityAlert{
			AlertType:        "iot_compromise",
			Severity:         rule.Severity,
			Title:            fmt.Sprintf("Multiple Vulnerabilities on IoT Device %s", d.IP),
			Description:      fmt.Sprintf("IoT device %s (%s) has %d unresolved severe findings", d.IP, d.DisplayName(), severe),
			SourceIP:         d.IP,
			AffectedDevices:  []string{d.IP},
			ThreatIndicators: indicators,
			RemediationSteps: []string{
				"Isolate the device from the network",
				"Update the device firmware",
				"Change default credentials",
				"Consider replacing the device",
			},
		}, d.IP)
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

// detectC2Beacons flags repeated connections from a local device to one
// external endpoint on a known C2 port. The remediation target is the
// remote endpoint, not the local device.
func (e *Engine) detectC2Beacons(ctx context.Context, rule domain.AlertRule) (int, error) {
	counts, err := e.queries.BeaconCounts(ctx, e.now().Add(-ruleWindow(rule)))
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, c := range counts {
		if !c2Ports[c.DestPort] {
			continue
		}
		if float64(c.Connections) < rule.ThresholdValue {
			continue
		}
		created, err := e.raise(ctx, rule, domain.SecurityAlert{
			AlertType:   "c2_communication",
			Severity:    rule.Severity,
			Title:       fmt.Sprintf("Possible C2 Communication from %s", c.SourceIP),
			Description: fmt.Sprintf("Device %s connected %d times to %s:%s within the detection window", c.SourceIP, c.Connections, c.DestIP, c.DestPort),
			SourceIP:    c.SourceIP,
			TargetIP:    c.DestIP,
			ThreatIndicators: []string{
				fmt.Sprintf("%d beacons to %s:%s", c.Connections, c.DestIP, c.DestPort),
				"known C2 port",
			},
			RemediationSteps: []string{
				"Block the remote endpoint",
				"Capture traffic from the device for analysis",
				"Reimage the device if infection is confirmed",
			},
		}, c.DestIP)
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

// detectDNSTunneling flags queries whose longest label exceeds the
// threshold. The store compares inclusively, so the cutoff passed down
// is threshold+1.
func (e *Engine) detectDNSTunneling(ctx context.Context, rule domain.AlertRule) (int, error) {
	labels, err := e.queries.LongDNSLabels(ctx, e.now().Add(-ruleWindow(rule)), int(rule.ThresholdValue)+1)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, l := range labels {
		created, err := e.raise(ctx, rule, domain.SecurityAlert{
			AlertType:   "dns_tunneling",
			Severity:    rule.Severity,
			Title:       fmt.Sprintf("Possible DNS Tunneling from %s", l.SourceIP),
			Description: fmt.Sprintf("DNS query with a %d-character label from %s", l.LabelLen, l.SourceIP),
			SourceIP:    l.SourceIP,
			ThreatIndicators: []string{
				truncate(l.Query, 120),
			},
			RemediationSteps: []string{
				"Inspect the querying device",
				"Review DNS logs for encoded payloads",
				"Force DNS through a filtering resolver",
			},
		}, l.SourceIP)
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}
	return raised, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
