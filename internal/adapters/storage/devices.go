package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// SaveDevice saves or updates a device keyed by MAC.
func (a *SQLiteAdapter) SaveDevice(ctx context.Context, d domain.Device) error {
	model := toDeviceModel(d)
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(&model).Error
}

// SaveDevicesBatch saves multiple devices in a single transaction.
func (a *SQLiteAdapter) SaveDevicesBatch(ctx context.Context, devices []domain.Device) error {
	if len(devices) == 0 {
		return nil
	}

	models := make([]DeviceModel, len(devices))
	for i, d := range devices {
		models[i] = toDeviceModel(d)
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
}

// GetDeviceByMAC retrieves a device by MAC.
func (a *SQLiteAdapter) GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error) {
	var model DeviceModel
	if err := a.db.WithContext(ctx).First(&model, "mac_address = ?", mac).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toDeviceDomain(model), nil
}

// GetDeviceByIP retrieves a device by its current IP.
func (a *SQLiteAdapter) GetDeviceByIP(ctx context.Context, ip string) (*domain.Device, error) {
	var model DeviceModel
	if err := a.db.WithContext(ctx).First(&model, "ip_address = ?", ip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toDeviceDomain(model), nil
}

// ListDevices retrieves devices matching the filter criteria.
func (a *SQLiteAdapter) ListDevices(ctx context.Context, filter domain.DeviceFilter) ([]domain.Device, error) {
	query := a.db.WithContext(ctx).Model(&DeviceModel{})

	// Apply filters dynamically
	if filter.Type != "" {
		query = query.Where("device_type = ?", string(filter.Type))
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Vendor != "" {
		query = query.Where("vendor LIKE ?", "%"+filter.Vendor+"%")
	}
	if filter.AtRisk {
		query = query.Where("security_score < ? AND security_score > 0", domain.AtRiskThreshold)
	} else if filter.MaxScore > 0 {
		query = query.Where("security_score <= ? AND security_score > 0", filter.MaxScore)
	}
	if !filter.SeenAfter.IsZero() {
		query = query.Where("last_seen >= ?", filter.SeenAfter)
	}
	if !filter.SeenBefore.IsZero() {
		query = query.Where("last_seen <= ?", filter.SeenBefore)
	}

	var models []DeviceModel
	if err := query.Order("last_seen DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	devices := make([]domain.Device, len(models))
	for i, m := range models {
		devices[i] = *toDeviceDomain(m)
	}
	return devices, nil
}

// SetTrusted flags a device as operator-trusted.
func (a *SQLiteAdapter) SetTrusted(ctx context.Context, mac string, trusted bool) error {
	res := a.db.WithContext(ctx).Model(&DeviceModel{}).
		Where("mac_address = ?", mac).
		Update("is_trusted", trusted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetNotes attaches operator notes to a device.
func (a *SQLiteAdapter) SetNotes(ctx context.Context, mac, notes string) error {
	res := a.db.WithContext(ctx).Model(&DeviceModel{}).
		Where("mac_address = ?", mac).
		Update("notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScore writes a freshly computed score and grade.
func (a *SQLiteAdapter) UpdateScore(ctx context.Context, mac string, score int, grade string) error {
	return a.db.WithContext(ctx).Model(&DeviceModel{}).
		Where("mac_address = ?", mac).
		Updates(map[string]any{
			"security_score": score,
			"security_grade": grade,
		}).Error
}
