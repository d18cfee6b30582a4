package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// clearedOnFlush are the derived tables emptied by a flush. Alert rules
// and user accounts survive so the system keeps working afterwards.
var clearedOnFlush = []string{
	"devices",
	"iot_vulnerabilities",
	"security_alerts",
	"alert_history",
	"ai_analysis",
	"ai_analysis_history",
	"iot_communications",
	"iot_behavioral_data",
	"iot_security_scores",
}

// FlushAllData drops every capture run table and empties the derived
// tables. Template tables stay so new runs can be created immediately.
func (a *SQLiteAdapter) FlushAllData(ctx context.Context) (*domain.FlushResult, error) {
	result := &domain.FlushResult{}

	byTool, err := a.ListCaptureTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing capture tables: %w", err)
	}
	for _, tables := range byTool {
		for _, table := range tables {
			if !domain.IsValidTableName(table) {
				continue
			}
			if _, err := a.raw.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				slog.Error("flush: drop table failed", "table", table, "error", err)
				continue
			}
			result.TablesDropped++
			result.DroppedTables = append(result.DroppedTables, table)
		}
	}

	for _, table := range clearedOnFlush {
		if err := a.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			slog.Error("flush: clear table failed", "table", table, "error", err)
			continue
		}
		result.TablesCleared++
		result.ClearedTables = append(result.ClearedTables, table)
	}

	if _, err := a.raw.ExecContext(ctx, "VACUUM"); err != nil {
		slog.Warn("flush: vacuum failed", "error", err)
	}

	result.Success = true
	result.Message = fmt.Sprintf("dropped %d capture tables, cleared %d data tables",
		result.TablesDropped, result.TablesCleared)
	slog.Info("all captured data flushed",
		"dropped", result.TablesDropped, "cleared", result.TablesCleared)
	return result, nil
}
