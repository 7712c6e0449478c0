package store

import (
	"context"
	"errors"
	"time"

	"whatsapp-crm/internal/models"

	"gorm.io/gorm"
)

func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *Store) ListMessages(ctx context.Context, waID string) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if waID != "" {
		q = q.Where("wa_id = ?", waID)
	}
	var messages []models.Message
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// HasInboundSince reports whether the contact produced any inbound message
// after the given time.
func (s *Store) HasInboundSince(ctx context.Context, waID string, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("wa_id = ? AND status = ? AND created_at > ?", waID, "received", since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LastInbound returns the contact's most recent inbound message, or nil when
// there is none.
func (s *Store) LastInbound(ctx context.Context, waID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("wa_id = ? AND status = ?", waID, "received").
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
