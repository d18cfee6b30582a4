package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// SaveCommunications stores a batch of observed IoT conversations.
func (a *SQLiteAdapter) SaveCommunications(ctx context.Context, comms []domain.IoTCommunication) error {
	if len(comms) == 0 {
		return nil
	}

	models := make([]IoTCommunicationModel, len(comms))
	for i, c := range comms {
		models[i] = IoTCommunicationModel{
			DeviceIP:     c.DeviceIP,
			RemoteIP:     c.RemoteIP,
			RemotePort:   c.RemotePort,
			Protocol:     c.Protocol,
			Bytes:        c.Bytes,
			Packets:      c.Packets,
			IsExternal:   c.IsExternal,
			RiskLevel:    c.RiskLevel,
			IsSuspicious: c.IsSuspicious,
			ObservedAt:   c.ObservedAt,
		}
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, 100).Error
	})
}

// SaveBehavior stores one behavioral sample.
func (a *SQLiteAdapter) SaveBehavior(ctx context.Context, b *domain.IoTBehavior) error {
	model := IoTBehaviorModel{
		DeviceIP:         b.DeviceIP,
		ActivityType:     b.ActivityType,
		ActivityScore:    b.ActivityScore,
		PacketCount:      b.PacketCount,
		UniqueDests:      b.UniqueDests,
		UniquePorts:      b.UniquePorts,
		BytesTransferred: b.BytesTransferred,
		DataPoints:       b.DataPoints,
		RecordedAt:       b.RecordedAt,
	}
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	b.ID = model.ID
	return nil
}

// UpsertIoTScore writes the per-device score sheet.
func (a *SQLiteAdapter) UpsertIoTScore(ctx context.Context, score *domain.IoTScore) error {
	model := IoTScoreModel{
		DeviceIP:      score.DeviceIP,
		Overall:       score.Overall,
		Vulnerability: score.Vulnerability,
		Communication: score.Communication,
		Behavioral:    score.Behavioral,
		ScoreHistory:  score.ScoreHistory,
		UpdatedAt:     score.UpdatedAt,
	}
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_ip"}},
		UpdateAll: true,
	}).Create(&model).Error
}

// GetIoTScore retrieves the score sheet for one device.
func (a *SQLiteAdapter) GetIoTScore(ctx context.Context, deviceIP string) (*domain.IoTScore, error) {
	var model IoTScoreModel
	if err := a.db.WithContext(ctx).First(&model, "device_ip = ?", deviceIP).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &domain.IoTScore{
		ID:            model.ID,
		DeviceIP:      model.DeviceIP,
		Overall:       model.Overall,
		Vulnerability: model.Vulnerability,
		Communication: model.Communication,
		Behavioral:    model.Behavioral,
		ScoreHistory:  model.ScoreHistory,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}
