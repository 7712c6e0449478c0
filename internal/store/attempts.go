package store

import (
	"context"

	"whatsapp-crm/internal/models"
)

func (s *Store) RecordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	return s.db.WithContext(ctx).Create(attempt).Error
}

func (s *Store) ListAttempts(ctx context.Context, waID string) ([]models.DeliveryAttempt, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if waID != "" {
		q = q.Where("wa_id = ?", waID)
	}
	var attempts []models.DeliveryAttempt
	if err := q.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// AttemptStats aggregates attempt counts per transport for the dashboard.
func (s *Store) AttemptStats(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Transport string
		Count     int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.DeliveryAttempt{}).
		Select("transport, count(*) as count").
		Group("transport").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Transport] = r.Count
	}
	return stats, nil
}
