package store

import (
	"context"
	"errors"
	"time"

	"whatsapp-crm/internal/models"

	"gorm.io/gorm"
)

func (s *Store) GetContact(ctx context.Context, waID string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).Where("wa_id = ?", waID).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *Store) CreateContact(ctx context.Context, contact *models.Contact) error {
	return s.db.WithContext(ctx).Create(contact).Error
}

// TouchInbound upserts the contact for an inbound message and stamps the
// free-form window expiry plus last-interaction fields.
func (s *Store) TouchInbound(ctx context.Context, waID, name string, receivedAt, windowExpiresAt time.Time) (*models.Contact, error) {
	unlock := s.lockContact(waID)
	defer unlock()

	var contact models.Contact
	err := s.db.WithContext(ctx).Where("wa_id = ?", waID).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		contact = models.Contact{WaID: waID, Name: name, Tags: "[]"}
		if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"window_expires_at":       windowExpiresAt,
		"last_interaction_at":     receivedAt,
		"last_interaction_source": "inbound",
	}
	if contact.Name == "" && name != "" {
		updates["name"] = name
	}
	if err := s.db.WithContext(ctx).Model(&contact).Updates(updates).Error; err != nil {
		return nil, err
	}
	contact.WindowExpiresAt = &windowExpiresAt
	contact.LastInteractionAt = &receivedAt
	contact.LastInteractionSource = "inbound"
	return &contact, nil
}

// RecordOutbound bumps the per-transport counter and the last-interaction
// stamp for one completed send. Called exactly once per delivery, whichever
// transport won.
func (s *Store) RecordOutbound(ctx context.Context, waID, transport string, at time.Time) error {
	unlock := s.lockContact(waID)
	defer unlock()

	var counter string
	switch transport {
	case "direct_api":
		counter = "direct_sent_count"
	case "template":
		counter = "template_sent_count"
	case "queued_automation":
		counter = "queued_sent_count"
	default:
		counter = "direct_sent_count"
	}

	return s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("wa_id = ?", waID).
		Updates(map[string]interface{}{
			counter:                   gorm.Expr(counter+" + ?", 1),
			"last_interaction_at":     at,
			"last_interaction_source": transport,
		}).Error
}

// SetSequenceState moves a contact's sequence cursor.
func (s *Store) SetSequenceState(ctx context.Context, waID string, sequenceID *uint, position int, startedAt, waitUntil *time.Time) error {
	unlock := s.lockContact(waID)
	defer unlock()

	return s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("wa_id = ?", waID).
		Updates(map[string]interface{}{
			"sequence_id":         sequenceID,
			"sequence_position":   position,
			"sequence_started_at": startedAt,
			"sequence_wait_until": waitUntil,
		}).Error
}
