package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// SaveAnalysis persists one successful AI verdict.
func (a *SQLiteAdapter) SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error {
	model := toAnalysisModel(*analysis)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	analysis.ID = model.ID
	return nil
}

// LatestAnalysis returns the most recent verdict, or ErrNotFound before
// the first successful cycle.
func (a *SQLiteAdapter) LatestAnalysis(ctx context.Context) (*domain.Analysis, error) {
	var model AnalysisModel
	if err := a.db.WithContext(ctx).Order("analyzed_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	analysis := toAnalysisDomain(model)
	return &analysis, nil
}

// ListAnalyses returns verdicts newest first.
func (a *SQLiteAdapter) ListAnalyses(ctx context.Context, limit int) ([]domain.Analysis, error) {
	query := a.db.WithContext(ctx).Model(&AnalysisModel{}).Order("analyzed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []AnalysisModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	analyses := make([]domain.Analysis, len(models))
	for i, m := range models {
		analyses[i] = toAnalysisDomain(m)
	}
	return analyses, nil
}

// RecordCycle logs one aggregator cycle outcome, success or failure.
func (a *SQLiteAdapter) RecordCycle(ctx context.Context, cycle *domain.AnalysisCycle) error {
	model := AnalysisCycleModel{
		AnalyzedAt:   cycle.AnalyzedAt,
		ModelUsed:    cycle.ModelUsed,
		Success:      cycle.Success,
		ErrorMessage: cycle.ErrorMessage,
		ProcessingMS: cycle.ProcessingMS,
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	cycle.ID = model.ID
	return nil
}
