package storage

import (
	"context"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// SaveVulnerability records a new finding.
func (a *SQLiteAdapter) SaveVulnerability(ctx context.Context, v *domain.Vulnerability) error {
	model := toVulnModel(*v)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	v.ID = model.ID
	return nil
}

// HasRecentVulnerability reports an unresolved finding of the same type
// for the device since the given time.
func (a *SQLiteAdapter) HasRecentVulnerability(ctx context.Context, deviceIP, vulnType string, since time.Time) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&VulnerabilityModel{}).
		Where("device_ip = ? AND vulnerability_type = ? AND resolved = ? AND detected_at >= ?",
			deviceIP, vulnType, false, since).
		Count(&count).Error
	return count > 0, err
}

// ListVulnerabilities returns findings, unresolved first, newest within
// each group.
func (a *SQLiteAdapter) ListVulnerabilities(ctx context.Context, includeResolved bool, limit int) ([]domain.Vulnerability, error) {
	query := a.db.WithContext(ctx).Model(&VulnerabilityModel{})
	if !includeResolved {
		query = query.Where("resolved = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []VulnerabilityModel
	if err := query.Order("resolved ASC, detected_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	vulns := make([]domain.Vulnerability, len(models))
	for i, m := range models {
		vulns[i] = toVulnDomain(m)
	}
	return vulns, nil
}

// UnresolvedByDevice returns open findings for one device.
func (a *SQLiteAdapter) UnresolvedByDevice(ctx context.Context, deviceIP string) ([]domain.Vulnerability, error) {
	var models []VulnerabilityModel
	err := a.db.WithContext(ctx).
		Where("device_ip = ? AND resolved = ?", deviceIP, false).
		Order("detected_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	vulns := make([]domain.Vulnerability, len(models))
	for i, m := range models {
		vulns[i] = toVulnDomain(m)
	}
	return vulns, nil
}

// CountUnresolvedSevere counts open CRITICAL and HIGH findings for a device.
func (a *SQLiteAdapter) CountUnresolvedSevere(ctx context.Context, deviceIP string) (int, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&VulnerabilityModel{}).
		Where("device_ip = ? AND resolved = ? AND severity IN ?",
			deviceIP, false, []string{string(domain.SeverityCritical), string(domain.SeverityHigh)}).
		Count(&count).Error
	return int(count), err
}

// ResolveVulnerability marks a finding resolved.
func (a *SQLiteAdapter) ResolveVulnerability(ctx context.Context, id uint) error {
	res := a.db.WithContext(ctx).Model(&VulnerabilityModel{}).
		Where("id = ?", id).
		Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
