package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// CreateAlert inserts a new alert row.
func (a *SQLiteAdapter) CreateAlert(ctx context.Context, alert *domain.SecurityAlert) error {
	model := toAlertModel(*alert)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	alert.ID = model.ID
	return nil
}

// FindActiveDuplicate returns an active alert with the same identity
// (type, source IP) created after the given time, or nil. The window is
// anchored on created_at: an alert older than the window spawns a fresh
// row even if it is still recurring.
func (a *SQLiteAdapter) FindActiveDuplicate(ctx context.Context, alertType, sourceIP string, since time.Time) (*domain.SecurityAlert, error) {
	var model AlertModel
	err := a.db.WithContext(ctx).
		Where("alert_type = ? AND source_ip = ? AND status = ? AND created_at >= ?",
			alertType, sourceIP, string(domain.AlertActive), since).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	alert := toAlertDomain(model)
	return &alert, nil
}

// UpdateAlert persists all fields of an existing alert.
func (a *SQLiteAdapter) UpdateAlert(ctx context.Context, alert *domain.SecurityAlert) error {
	model := toAlertModel(*alert)
	return a.db.WithContext(ctx).Save(&model).Error
}

// GetAlertByAlertID retrieves an alert by its external identifier.
func (a *SQLiteAdapter) GetAlertByAlertID(ctx context.Context, alertID string) (*domain.SecurityAlert, error) {
	var model AlertModel
	if err := a.db.WithContext(ctx).First(&model, "alert_id = ?", alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	alert := toAlertDomain(model)
	return &alert, nil
}

// ListAlerts returns alerts filtered by status, severity-first.
func (a *SQLiteAdapter) ListAlerts(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.SecurityAlert, error) {
	query := a.db.WithContext(ctx).Model(&AlertModel{})
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []AlertModel
	err := query.Order(`CASE severity
		WHEN 'CRITICAL' THEN 0
		WHEN 'HIGH' THEN 1
		WHEN 'MEDIUM' THEN 2
		ELSE 3 END, last_seen DESC`).Find(&models).Error
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.SecurityAlert, len(models))
	for i, m := range models {
		alerts[i] = toAlertDomain(m)
	}
	return alerts, nil
}

// AppendHistory records one alert state transition.
func (a *SQLiteAdapter) AppendHistory(ctx context.Context, entry *domain.AlertHistoryEntry) error {
	model := AlertHistoryModel{
		AlertID:     entry.AlertID,
		Action:      entry.Action,
		Detail:      entry.Detail,
		PerformedBy: entry.PerformedBy,
		CreatedAt:   entry.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	entry.ID = model.ID
	return nil
}

// HistoryForAlert returns the transition log for one alert, oldest first.
func (a *SQLiteAdapter) HistoryForAlert(ctx context.Context, alertID string) ([]domain.AlertHistoryEntry, error) {
	var models []AlertHistoryModel
	err := a.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.AlertHistoryEntry, len(models))
	for i, m := range models {
		entries[i] = domain.AlertHistoryEntry{
			ID:          m.ID,
			AlertID:     m.AlertID,
			Action:      m.Action,
			Detail:      m.Detail,
			PerformedBy: m.PerformedBy,
			CreatedAt:   m.CreatedAt,
		}
	}
	return entries, nil
}

// AlertStatistics summarizes the alert table for the dashboard.
func (a *SQLiteAdapter) AlertStatistics(ctx context.Context) (domain.AlertStatistics, error) {
	stats := domain.NewAlertStatistics()
	db := a.db.WithContext(ctx)

	rows, err := db.Model(&AlertModel{}).
		Select("severity, COUNT(*) as n").Group("severity").Rows()
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var sev string
		var n int
		if rows.Scan(&sev, &n) == nil {
			stats.BySeverity[sev] = n
		}
	}
	rows.Close()

	rows, err = db.Model(&AlertModel{}).
		Select("status, COUNT(*) as n").Group("status").Rows()
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var status string
		var n int
		if rows.Scan(&status, &n) == nil {
			stats.ByStatus[status] = n
		}
	}
	rows.Close()

	var last24 int64
	db.Model(&AlertModel{}).
		Where("created_at >= ?", time.Now().Add(-24*time.Hour)).
		Count(&last24)
	stats.CreatedLast24h = int(last24)

	var ok64, fail64 int64
	db.Model(&AlertHistoryModel{}).Where("action = ?", domain.HistoryAutoRemediation).Count(&ok64)
	db.Model(&AlertHistoryModel{}).Where("action = ?", domain.HistoryRemediationFailed).Count(&fail64)
	stats.RemediationSuccess = int(ok64)
	stats.RemediationFailure = int(fail64)

	return stats, nil
}

// ListRules returns every detection rule.
func (a *SQLiteAdapter) ListRules(ctx context.Context) ([]domain.AlertRule, error) {
	var models []AlertRuleModel
	if err := a.db.WithContext(ctx).Order("rule_name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	rules := make([]domain.AlertRule, len(models))
	for i, m := range models {
		rules[i] = toRuleDomain(m)
	}
	return rules, nil
}

// GetRule retrieves a rule by name.
func (a *SQLiteAdapter) GetRule(ctx context.Context, name string) (*domain.AlertRule, error) {
	var model AlertRuleModel
	if err := a.db.WithContext(ctx).First(&model, "rule_name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rule := toRuleDomain(model)
	return &rule, nil
}

// SaveRule creates or updates a rule keyed by name.
func (a *SQLiteAdapter) SaveRule(ctx context.Context, rule *domain.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	model := toRuleModel(*rule)
	// The upsert is keyed by name; carrying a row id into the insert
	// would collide on the primary key instead.
	model.ID = 0
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rule_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return err
	}
	var saved AlertRuleModel
	if err := a.db.WithContext(ctx).Where("rule_name = ?", rule.RuleName).First(&saved).Error; err != nil {
		return err
	}
	rule.ID = saved.ID
	return nil
}

// SeedDefaultRules inserts rules that do not exist yet. Present rows are
// left untouched so operator tuning survives restarts.
func (a *SQLiteAdapter) SeedDefaultRules(ctx context.Context, rules []domain.AlertRule) error {
	for _, rule := range rules {
		model := toRuleModel(rule)
		err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rule_name"}},
			DoNothing: true,
		}).Create(&model).Error
		if err != nil {
			return err
		}
	}
	return nil
}
