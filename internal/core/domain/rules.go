package domain

import (
	"errors"
	"strings"
)

// Domain errors for alert rules.
var (
	ErrInvalidRuleType = errors.New("invalid alert rule type")
	ErrEmptyRuleName   = errors.New("alert rule name cannot be empty")
	ErrBadThreshold    = errors.New("alert rule threshold must be positive")
)

// RuleType groups alert rules by the detector family that evaluates them.
type RuleType string

const (
	RuleBehavioral     RuleType = "behavioral"
	RuleAuthentication RuleType = "authentication"
	RuleTraffic        RuleType = "traffic"
	RuleIoT            RuleType = "iot"
	RuleMalware        RuleType = "malware"
	RuleExfiltration   RuleType = "exfiltration"
)

// AlertRule is a tunable detection rule. Thresholds live in the database so
// operators can adjust them without a redeploy; detectors read the rule row,
// never compiled-in constants.
type AlertRule struct {
	ID                 uint     `json:"id"`
	RuleName           string   `json:"rule_name"`
	RuleType           RuleType `json:"rule_type"`
	ThresholdValue     float64  `json:"threshold_value"`
	TimeWindowSeconds  int      `json:"time_window_seconds"`
	Severity           Severity `json:"severity"`
	Enabled            bool     `json:"enabled"`
	AutoRemediate      bool     `json:"auto_remediate"`
	RemediationCommand string   `json:"remediation_command,omitempty"`
}

// Validate performs internal consistency checks on the rule.
func (r *AlertRule) Validate() error {
	if strings.TrimSpace(r.RuleName) == "" {
		return ErrEmptyRuleName
	}
	switch r.RuleType {
	case RuleBehavioral, RuleAuthentication, RuleTraffic, RuleIoT, RuleMalware, RuleExfiltration:
	default:
		return ErrInvalidRuleType
	}
	if r.ThresholdValue <= 0 {
		return ErrBadThreshold
	}
	if !r.Severity.IsValid() {
		return ErrInvalidSeverity
	}
	return nil
}

// RenderRemediation substitutes the offender address into the remediation
// command template. The only placeholder is {ip}.
func (r *AlertRule) RenderRemediation(sourceIP string) string {
	return strings.ReplaceAll(r.RemediationCommand, "{ip}", sourceIP)
}

// Default rule names. The engine looks rules up by name, so these are part of
// the seeded contract.
const (
	RulePortScan        = "Port_Scan_Detection"
	RuleBruteForce      = "Brute_Force_Attack"
	RuleUnusualOutbound = "Unusual_Outbound_Traffic"
	RuleIoTCompromise   = "IoT_Device_Compromise"
	RuleMalwareC2       = "Malware_C2_Communication"
	RuleDNSTunneling    = "DNS_Tunneling"
)

// DefaultAlertRules returns the rule set seeded at bootstrap. Existing rows
// are never overwritten, so operator tuning survives restarts.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			RuleName:           RulePortScan,
			RuleType:           RuleBehavioral,
			ThresholdValue:     20,
			TimeWindowSeconds:  60,
			Severity:           SeverityHigh,
			Enabled:            true,
			AutoRemediate:      true,
			RemediationCommand: "sudo iptables -A INPUT -s {ip} -j DROP",
		},
		{
			RuleName:           RuleBruteForce,
			RuleType:           RuleAuthentication,
			ThresholdValue:     5,
			TimeWindowSeconds:  300,
			Severity:           SeverityCritical,
			Enabled:            true,
			AutoRemediate:      true,
			RemediationCommand: "sudo iptables -A INPUT -s {ip} -j DROP",
		},
		{
			RuleName:          RuleUnusualOutbound,
			RuleType:          RuleTraffic,
			ThresholdValue:    1024 * 1024 * 1024, // bytes
			TimeWindowSeconds: 3600,
			Severity:          SeverityMedium,
			Enabled:           true,
		},
		{
			RuleName:           RuleIoTCompromise,
			RuleType:           RuleIoT,
			ThresholdValue:     2, // unresolved CRITICAL/HIGH findings
			TimeWindowSeconds:  3600,
			Severity:           SeverityCritical,
			Enabled:            true,
			AutoRemediate:      true,
			RemediationCommand: "sudo iptables -A INPUT -s {ip} -j DROP",
		},
		{
			RuleName:           RuleMalwareC2,
			RuleType:           RuleMalware,
			ThresholdValue:     10, // beacons within the window
			TimeWindowSeconds:  3600,
			Severity:           SeverityCritical,
			Enabled:            true,
			AutoRemediate:      true,
			RemediationCommand: "sudo iptables -A OUTPUT -d {ip} -j DROP",
		},
		{
			RuleName:          RuleDNSTunneling,
			RuleType:          RuleExfiltration,
			ThresholdValue:    63, // max DNS label length
			TimeWindowSeconds: 3600,
			Severity:          SeverityHigh,
			Enabled:           true,
		},
	}
}
