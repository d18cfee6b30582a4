package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

// SQLiteAdapter implements ports.Store. The derived singleton tables go
// through GORM; the per-run capture tables need dynamic DDL and column
// sets, so they run on the raw connection underneath.
type SQLiteAdapter struct {
	db  *gorm.DB
	raw *sql.DB
}

// NewSQLiteAdapter opens the database, migrates the derived schema, and
// prepares the capture table templates.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	raw, err := db.DB()
	if err != nil {
		return nil, err
	}

	// WAL lets collectors write while the dashboard reads
	if _, err := raw.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	a := &SQLiteAdapter{db: db, raw: raw}
	if err := a.migrate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SQLiteAdapter) migrate() error {
	if err := a.db.AutoMigrate(
		&DeviceModel{},
		&VulnerabilityModel{},
		&AlertModel{},
		&AlertHistoryModel{},
		&AlertRuleModel{},
		&AnalysisModel{},
		&AnalysisCycleModel{},
		&IoTCommunicationModel{},
		&IoTBehaviorModel{},
		&IoTScoreModel{},
		&domain.User{},
	); err != nil {
		return err
	}

	// Create Indices for Performance
	a.db.Exec("CREATE INDEX IF NOT EXISTS idx_vulns_device_type ON iot_vulnerabilities(device_ip, vulnerability_type)")
	a.db.Exec("CREATE INDEX IF NOT EXISTS idx_alerts_type_source ON security_alerts(alert_type, source_ip)")
	a.db.Exec("CREATE INDEX IF NOT EXISTS idx_alerts_last_seen ON security_alerts(last_seen)")
	a.db.Exec("CREATE INDEX IF NOT EXISTS idx_analysis_analyzed_at ON ai_analysis(analyzed_at)")
	a.db.Exec("CREATE INDEX IF NOT EXISTS idx_comms_observed_at ON iot_communications(observed_at)")

	if err := a.createTemplates(); err != nil {
		return err
	}

	return nil
}

// createTemplates builds one <prefix>_template table per capture family.
// Run tables are cloned from these; flushes drop runs but keep templates.
func (a *SQLiteAdapter) createTemplates() error {
	for _, spec := range domain.AllTableSpecs() {
		ddl := buildCreateTable(spec.Prefix+"_template", spec.Columns)
		if _, err := a.raw.Exec(ddl); err != nil {
			return fmt.Errorf("create template %s: %w", spec.Prefix, err)
		}
	}
	return nil
}

// Bootstrap seeds the default alert rules and the admin account. Both
// are insert-if-missing, operator changes survive restarts.
func (a *SQLiteAdapter) Bootstrap(ctx context.Context, adminHash string) error {
	if err := a.SeedDefaultRules(ctx, domain.DefaultAlertRules()); err != nil {
		return err
	}

	var count int64
	if err := a.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		admin, err := domain.NewUser(uuid.NewString(), "admin", domain.RoleAdmin)
		if err != nil {
			return err
		}
		admin.PasswordHash = adminHash
		if err := a.db.WithContext(ctx).Create(admin).Error; err != nil {
			return err
		}
		slog.Info("Created default admin user", "username", "admin")
	}

	return nil
}

// Stats computes the dashboard aggregate in one pass.
func (a *SQLiteAdapter) Stats(ctx context.Context) (domain.SystemStats, error) {
	stats := domain.NewSystemStats()
	db := a.db.WithContext(ctx)

	var total int64
	if err := db.Model(&DeviceModel{}).Count(&total).Error; err != nil {
		return stats, err
	}
	stats.DeviceCount = int(total)

	rows, err := db.Model(&DeviceModel{}).
		Select("device_type, COUNT(*) as n").Group("device_type").Rows()
	if err == nil {
		for rows.Next() {
			var typ string
			var n int
			if rows.Scan(&typ, &n) == nil {
				stats.DevicesByType[typ] = n
			}
		}
		rows.Close()
	}

	rows, err = db.Model(&DeviceModel{}).
		Select("category, COUNT(*) as n").Group("category").Rows()
	if err == nil {
		for rows.Next() {
			var cat string
			var n int
			if rows.Scan(&cat, &n) == nil {
				stats.DevicesByCategory[cat] = n
			}
		}
		rows.Close()
	}

	var active int64
	db.Model(&AlertModel{}).Where("status = ?", string(domain.AlertActive)).Count(&active)
	stats.ActiveAlertCount = int(active)

	rows, err = db.Model(&AlertModel{}).
		Select("severity, COUNT(*) as n").
		Where("status = ?", string(domain.AlertActive)).
		Group("severity").Rows()
	if err == nil {
		for rows.Next() {
			var sev string
			var n int
			if rows.Scan(&sev, &n) == nil {
				stats.AlertsBySeverity[sev] = n
			}
		}
		rows.Close()
	}

	var open int64
	db.Model(&VulnerabilityModel{}).Where("resolved = ?", false).Count(&open)
	stats.OpenVulnCount = int(open)

	var latest AnalysisModel
	if err := db.Order("analyzed_at DESC").First(&latest).Error; err == nil {
		stats.ThreatLevel = latest.ThreatLevel
		stats.NetworkHealthScore = latest.NetworkHealthScore
	}

	stats.LastUpdated = time.Now()
	return stats, nil
}

// DBSize returns the database file size reported by SQLite.
func (a *SQLiteAdapter) DBSize(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := a.raw.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, err
	}
	if err := a.raw.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, err
	}
	return pageCount * pageSize, nil
}

func (a *SQLiteAdapter) Close() error {
	return a.raw.Close()
}

// Ensure interface compliance
var _ ports.Store = (*SQLiteAdapter)(nil)
