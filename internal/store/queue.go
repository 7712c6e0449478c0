package store

import (
	"context"

	"whatsapp-crm/internal/models"

	"github.com/google/uuid"
)

// Enqueue hands a message to the browser-automation worker. Delivery is
// asynchronous; the returned id identifies the queue entry.
func (s *Store) Enqueue(ctx context.Context, waID, messageType, content string, priority int) (string, error) {
	entry := models.QueueEntry{
		ID:          uuid.NewString(),
		WaID:        waID,
		MessageType: messageType,
		Content:     content,
		Priority:    priority,
		Status:      "pending",
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (s *Store) ListQueue(ctx context.Context, status string) ([]models.QueueEntry, error) {
	q := s.db.WithContext(ctx).Order("priority DESC, created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var entries []models.QueueEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
