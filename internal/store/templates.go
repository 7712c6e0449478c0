package store

import (
	"context"
	"errors"

	"whatsapp-crm/internal/models"

	"gorm.io/gorm"
)

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	var tmpl models.Template
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	if err := s.db.WithContext(ctx).Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// LatestDeal returns the most recent deal for a contact, or nil when the
// contact has none.
func (s *Store) LatestDeal(ctx context.Context, waID string) (*models.Deal, error) {
	var deal models.Deal
	err := s.db.WithContext(ctx).Where("wa_id = ?", waID).Order("created_at DESC").First(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}
