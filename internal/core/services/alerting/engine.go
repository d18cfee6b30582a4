// Package alerting evaluates the tunable detection rules against recent
// capture history and manages the resulting alert lifecycle.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	defaultInterval = 5 * time.Minute

	// An active alert with the same (type, source) created inside this
	// window absorbs repeats as recurrences instead of new rows.
	dedupWindow = time.Hour

	remediationTimeout = 30 * time.Second
)

// CommandRunner executes one remediation command and returns its combined
// output. Injectable so tests never shell out.
type CommandRunner func(ctx context.Context, command string) (string, error)

func shellRunner(ctx context.Context, command string) (string, error) {
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
	return string(out), err
}

// Engine runs the detection rules on a fixed interval. Thresholds come
// from the rule table on every cycle, so operator tuning applies without
// a restart.
type Engine struct {
	store    ports.AlertStore
	vulns    ports.VulnerabilityStore
	queries  ports.CaptureQueries
	registry ports.DeviceRegistry
	notifier ports.EventNotifier

	run      CommandRunner
	autoRun  bool
	interval time.Duration
	now      func() time.Time

	// Only touched from the cycle goroutine. Alert IDs carry a
	// second-resolution timestamp under a unique index, so the ID clock
	// must never repeat.
	lastIDAt time.Time
}

func NewEngine(store ports.AlertStore, vulns ports.VulnerabilityStore, queries ports.CaptureQueries, registry ports.DeviceRegistry, notifier ports.EventNotifier, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Engine{
		store:    store,
		vulns:    vulns,
		queries:  queries,
		registry: registry,
		notifier: notifier,
		run:      shellRunner,
		autoRun:  true,
		interval: interval,
		now:      time.Now,
	}
}

// SetNotifier binds the dashboard broadcaster. The web server carries
// the broadcaster but is constructed with the engine, so one side of
// the pair has to bind after construction.
func (e *Engine) SetNotifier(n ports.EventNotifier) { e.notifier = n }

// SetAutoRemediation gates the automatic command runs when an alert is
// raised. On-demand remediation through the API is unaffected.
func (e *Engine) SetAutoRemediation(enabled bool) { e.autoRun = enabled }

// SeedRules inserts the default rule set, leaving existing rows alone.
func (e *Engine) SeedRules(ctx context.Context) error {
	return e.store.SeedDefaultRules(ctx, domain.DefaultAlertRules())
}

// Run seeds the rules and evaluates them until the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.SeedRules(ctx); err != nil {
		return fmt.Errorf("seed alert rules: %w", err)
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if raised, err := e.Cycle(ctx); err != nil {
			slog.Error("alert cycle failed", "error", err)
		} else if raised > 0 {
			slog.Info("alert cycle complete", "new_alerts", raised)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs every enabled detector once. A failing detector logs and
// the rest still run. Returns the number of newly created alerts.
func (e *Engine) Cycle(ctx context.Context) (int, error) {
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alert rules: %w", err)
	}
	byName := make(map[string]domain.AlertRule, len(rules))
	for _, rule := range rules {
		byName[rule.RuleName] = rule
	}

	raised := 0
	for _, detector := range []struct {
		rule string
		fn   func(context.Context, domain.AlertRule) (int, error)
	}{
		{domain.RulePortScan, e.detectPortScans},
		{domain.RuleBruteForce, e.detectBruteForce},
		{domain.RuleUnusualOutbound, e.detectUnusualOutbound},
		{domain.RuleIoTCompromise, e.detectIoTCompromise},
		{domain.RuleMalwareC2, e.detectC2Beacons},
		{domain.RuleDNSTunneling, e.detectDNSTunneling},
	} {
		rule, ok := byName[detector.rule]
		if !ok || !rule.Enabled {
			continue
		}
		if ctx.Err() != nil {
			return raised, ctx.Err()
		}
		n, err := detector.fn(ctx, rule)
		if err != nil {
			slog.Warn("detector failed", "rule", detector.rule, "error", err)
			continue
		}
		raised += n
	}
	return raised, nil
}

// raise creates the alert unless an active duplicate absorbs it. The
// remediation target is the address substituted into the rule's command;
// it is normally the source, except for C2 alerts which block the
// remote endpoint. Returns true when a new row was created.
func (e *Engine) raise(ctx context.Context, rule domain.AlertRule, alert domain.SecurityAlert, remediationTarget string) (bool, error) {
	now := e.now()

	dup, err := e.store.FindActiveDuplicate(ctx, alert.AlertType, alert.SourceIP, now.Add(-dedupWindow))
	if err != nil {
		return false, err
	}
	if dup != nil {
		dup.RecurrenceCount++
		dup.LastSeen = now
		dup.UpdatedAt = now
		if err := e.store.UpdateAlert(ctx, dup); err != nil {
			return false, err
		}
		e.appendHistory(ctx, dup.AlertID, domain.HistoryRecurrence,
			fmt.Sprintf("Recurrence %d: %s", dup.RecurrenceCount, alert.Title), "system", now)
		return false, nil
	}

	idAt := now
	if !idAt.After(e.lastIDAt) {
		idAt = e.lastIDAt.Add(time.Second)
	}
	e.lastIDAt = idAt

	alert.AlertID = domain.NewAlertID(alert.AlertType, idAt)
	alert.Status = domain.AlertActive
	alert.CreatedAt = now
	alert.UpdatedAt = now
	alert.LastSeen = now
	if rule.AutoRemediate && rule.RemediationCommand != "" {
		alert.AutoRemediationAvailable = true
		alert.RemediationCommand = rule.RenderRemediation(remediationTarget)
	}

	if err := e.store.CreateAlert(ctx, &alert); err != nil {
		return false, err
	}
	e.appendHistory(ctx, alert.AlertID, domain.HistoryCreated, "Alert created: "+alert.Title, "system", now)

	slog.Warn("new security alert",
		"alert_id", alert.AlertID,
		"severity", alert.Severity,
		"title", alert.Title)
	if e.notifier != nil {
		e.notifier.NotifyAlert(alert)
	}

	if alert.AutoRemediationAvailable && e.autoRun {
		e.autoRemediate(ctx, &alert)
	}
	return true, nil
}

// autoRemediate runs the alert's rendered command. Success closes the
// alert; failure leaves it active with a failure history row.
func (e *Engine) autoRemediate(ctx context.Context, alert *domain.SecurityAlert) {
	runCtx, cancel := context.WithTimeout(ctx, remediationTimeout)
	defer cancel()

	slog.Info("running auto-remediation", "alert_id", alert.AlertID, "command", alert.RemediationCommand)
	output, err := e.run(runCtx, alert.RemediationCommand)
	now := e.now()

	if err != nil {
		slog.Error("auto-remediation failed", "alert_id", alert.AlertID, "error", err)
		e.appendHistory(ctx, alert.AlertID, domain.HistoryRemediationFailed,
			fmt.Sprintf("Command failed: %s\n%s%v", alert.RemediationCommand, output, err), "system", now)
		return
	}

	e.appendHistory(ctx, alert.AlertID, domain.HistoryAutoRemediation,
		fmt.Sprintf("Command executed: %s\nResult: %s", alert.RemediationCommand, output), "system", now)

	alert.Status = domain.AlertResolved
	alert.ResolvedBy = domain.ResolvedByRemediation
	alert.ResolvedAt = &now
	alert.UpdatedAt = now
	if err := e.store.UpdateAlert(ctx, alert); err != nil {
		slog.Error("alert close after remediation failed", "alert_id", alert.AlertID, "error", err)
	}
}

// Remediate triggers the stored remediation command for one alert on
// demand. Reports whether the command ran and the alert was closed.
func (e *Engine) Remediate(ctx context.Context, alertID string) (bool, error) {
	alert, err := e.store.GetAlertByAlertID(ctx, alertID)
	if err != nil {
		return false, err
	}
	if alert == nil || !alert.AutoRemediationAvailable || alert.RemediationCommand == "" {
		return false, fmt.Errorf("no remediation available for %s", alertID)
	}
	if alert.Status != domain.AlertActive {
		return false, fmt.Errorf("alert %s is not active", alertID)
	}
	e.autoRemediate(ctx, alert)
	return alert.Status == domain.AlertResolved, nil
}

// Resolve closes an alert on an operator's behalf.
func (e *Engine) Resolve(ctx context.Context, alertID, by string) error {
	alert, err := e.store.GetAlertByAlertID(ctx, alertID)
	if err != nil {
		return err
	}
	now := e.now()
	alert.Status = domain.AlertResolved
	alert.ResolvedBy = by
	alert.ResolvedAt = &now
	alert.UpdatedAt = now
	if err := e.store.UpdateAlert(ctx, alert); err != nil {
		return err
	}
	e.appendHistory(ctx, alertID, domain.HistoryResolved, "Alert resolved", by, now)
	return nil
}

// MarkFalsePositive flags an alert as noise and closes it.
func (e *Engine) MarkFalsePositive(ctx context.Context, alertID, by string) error {
	alert, err := e.store.GetAlertByAlertID(ctx, alertID)
	if err != nil {
		return err
	}
	now := e.now()
	alert.Status = domain.AlertFalsePositive
	alert.FalsePositive = true
	alert.UpdatedAt = now
	if err := e.store.UpdateAlert(ctx, alert); err != nil {
		return err
	}
	e.appendHistory(ctx, alertID, domain.HistoryFalsePositive, "Alert marked as false positive", by, now)
	return nil
}

func (e *Engine) appendHistory(ctx context.Context, alertID, action, detail, by string, at time.Time) {
	entry := &domain.AlertHistoryEntry{
		AlertID:     alertID,
		Action:      action,
		Detail:      detail,
		PerformedBy: by,
		CreatedAt:   at,
	}
	if err := e.store.AppendHistory(ctx, entry); err != nil {
		slog.Warn("alert history write failed", "alert_id", alertID, "action", action, "error", err)
	}
}

func ruleWindow(rule domain.AlertRule) time.Duration {
	if rule.TimeWindowSeconds <= 0 {
		return defaultInterval
	}
	return time.Duration(rule.TimeWindowSeconds) * time.Second
}
