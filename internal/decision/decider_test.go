package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/models"
)

type fakeContacts struct {
	contact *models.Contact
	err     error
}

func (f *fakeContacts) GetContact(ctx context.Context, waID string) (*models.Contact, error) {
	return f.contact, f.err
}

func deciderAt(contact *models.Contact, now time.Time) *Decider {
	d := NewDecider(&fakeContacts{contact: contact})
	d.Now = func() time.Time { return now }
	return d
}

func TestDecideShortWindowWinsOverGrace(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expires := now.Add(10 * time.Hour)
	contact := &models.Contact{
		WaID:            "5215550001",
		CreatedAt:       now.Add(-2 * time.Hour),
		WindowExpiresAt: &expires,
	}

	dec, err := deciderAt(contact, now).Decide(context.Background(), contact.WaID)
	require.NoError(t, err)
	assert.Equal(t, MethodDirectAPI, dec.Method)
	assert.Equal(t, ReasonWindow24hActive, dec.Reason)
	assert.False(t, dec.Forced)
}

func TestDecideGraceWindowWhenShortExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expires := now.Add(-time.Hour)
	contact := &models.Contact{
		WaID:            "5215550002",
		CreatedAt:       now.Add(-10 * time.Hour),
		WindowExpiresAt: &expires,
	}

	dec, err := deciderAt(contact, now).Decide(context.Background(), contact.WaID)
	require.NoError(t, err)
	assert.Equal(t, MethodDirectAPI, dec.Method)
	assert.Equal(t, ReasonWindow72hActive, dec.Reason)
}

func TestDecideQueueWhenBothWindowsClosed(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expires := now.Add(-30 * time.Hour)
	contact := &models.Contact{
		WaID:            "5215550003",
		CreatedAt:       now.Add(-80 * time.Hour),
		WindowExpiresAt: &expires,
	}

	dec, err := deciderAt(contact, now).Decide(context.Background(), contact.WaID)
	require.NoError(t, err)
	assert.Equal(t, MethodQueuedAutomation, dec.Method)
	assert.Equal(t, ReasonWindowClosed, dec.Reason)
}

func TestDecideStoreErrorDegradesToQueue(t *testing.T) {
	boom := errors.New("db unavailable")
	d := NewDecider(&fakeContacts{err: boom})

	dec, err := d.Decide(context.Background(), "5215550004")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, MethodQueuedAutomation, dec.Method)
	assert.Equal(t, ReasonWindowClosed, dec.Reason)
}

func TestForcedBypassesWindows(t *testing.T) {
	dec := Forced(MethodTemplate)
	assert.Equal(t, MethodTemplate, dec.Method)
	assert.Equal(t, ReasonForced, dec.Reason)
	assert.True(t, dec.Forced)
}
