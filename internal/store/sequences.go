package store

import (
	"context"
	"errors"
	"time"

	"whatsapp-crm/internal/models"

	"gorm.io/gorm"
)

// GetSequence loads a sequence with its steps in position order.
func (s *Store) GetSequence(ctx context.Context, id uint) (*models.Sequence, error) {
	var seq models.Sequence
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_steps.position ASC")
		}).
		First(&seq, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSequenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

func (s *Store) CreateSequence(ctx context.Context, seq *models.Sequence) error {
	return s.db.WithContext(ctx).Create(seq).Error
}

func (s *Store) ListSequences(ctx context.Context) ([]models.Sequence, error) {
	var seqs []models.Sequence
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_steps.position ASC")
		}).
		Order("created_at DESC").Find(&seqs).Error
	if err != nil {
		return nil, err
	}
	return seqs, nil
}

// WaitingEnrollments returns contacts whose sequence pause has elapsed.
func (s *Store) WaitingEnrollments(ctx context.Context, now time.Time) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.db.WithContext(ctx).
		Where("sequence_id IS NOT NULL AND sequence_wait_until IS NOT NULL AND sequence_wait_until <= ?", now).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}
