// Package window computes the time-based eligibility windows that gate
// direct Cloud API sends for a contact.
package window

import (
	"time"

	"whatsapp-crm/internal/models"
)

// ShortWindowDuration is how long the free-form window stays open after an
// inbound message. The webhook stamps contact.WindowExpiresAt with it.
const ShortWindowDuration = 24 * time.Hour

// GracePeriodHours is the courtesy allowance after contact creation during
// which direct sends are still permitted. The boundary is exclusive: at
// exactly 72h the contact is no longer within grace.
const GracePeriodHours = 72.0

type ShortWindow struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type GraceWindow struct {
	WithinGrace        bool    `json:"within_grace"`
	HoursSinceCreation float64 `json:"hours_since_creation"`
}

type Windows struct {
	Short ShortWindow `json:"short"`
	Grace GraceWindow `json:"grace"`
}

// Compute derives both windows from the contact's timestamps. A nil contact
// yields both windows inactive so the decision pipeline fails closed toward
// the automation queue.
func Compute(contact *models.Contact, now time.Time) Windows {
	if contact == nil {
		return Windows{}
	}

	var short ShortWindow
	if contact.WindowExpiresAt != nil && now.Before(*contact.WindowExpiresAt) {
		short = ShortWindow{Active: true, ExpiresAt: contact.WindowExpiresAt}
	} else {
		short = ShortWindow{Active: false, ExpiresAt: contact.WindowExpiresAt}
	}

	hours := now.Sub(contact.CreatedAt).Hours()
	grace := GraceWindow{
		WithinGrace:        hours < GracePeriodHours,
		HoursSinceCreation: hours,
	}

	return Windows{Short: short, Grace: grace}
}
