// Package decision picks the transport allowed to carry an outbound message.
package decision

import (
	"context"
	"time"

	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/window"
)

// Method is the transport chosen for a send.
type Method string

const (
	MethodDirectAPI        Method = "direct_api"
	MethodTemplate         Method = "template"
	MethodQueuedAutomation Method = "queued_automation"
)

// Reason explains why a method was chosen. Intended for logs and the
// delivery attempt record.
type Reason string

const (
	ReasonWindow24hActive Reason = "window_24h_active"
	ReasonWindow72hActive Reason = "window_72h_active"
	ReasonWindowClosed    Reason = "window_closed"
	ReasonForced          Reason = "forced"
)

// Decision is the transport verdict for one send attempt.
type Decision struct {
	Method Method  `json:"method"`
	Reason Reason  `json:"reason"`
	Cost   float64 `json:"cost"`
	Forced bool    `json:"forced"`
}

// ContactReader is the slice of the contact store the decider depends on.
type ContactReader interface {
	GetContact(ctx context.Context, waID string) (*models.Contact, error)
}

type Decider struct {
	Contacts ContactReader
	Now      func() time.Time
}

func NewDecider(contacts ContactReader) *Decider {
	return &Decider{Contacts: contacts, Now: time.Now}
}

// Forced builds a decision that bypasses window evaluation entirely. Used by
// callers that already know the transport, e.g. sequence steps carrying a
// template.
func Forced(method Method) Decision {
	return Decision{Method: method, Reason: ReasonForced, Forced: true}
}

// Decide returns the transport for the contact, first match wins:
// short window -> direct, grace window -> direct, otherwise the queue.
// A failed contact lookup degrades to the queue and returns the error
// alongside so the caller can log it without blocking delivery.
func (d *Decider) Decide(ctx context.Context, waID string) (Decision, error) {
	contact, err := d.Contacts.GetContact(ctx, waID)
	if err != nil {
		return Decision{Method: MethodQueuedAutomation, Reason: ReasonWindowClosed}, err
	}

	w := window.Compute(contact, d.Now())
	switch {
	case w.Short.Active:
		return Decision{Method: MethodDirectAPI, Reason: ReasonWindow24hActive}, nil
	case w.Grace.WithinGrace:
		return Decision{Method: MethodDirectAPI, Reason: ReasonWindow72hActive}, nil
	default:
		return Decision{Method: MethodQueuedAutomation, Reason: ReasonWindowClosed}, nil
	}
}

// Windows exposes the raw window computation for the API surface.
func (d *Decider) Windows(ctx context.Context, waID string) (window.Windows, error) {
	contact, err := d.Contacts.GetContact(ctx, waID)
	if err != nil {
		return window.Compute(nil, d.Now()), err
	}
	return window.Compute(contact, d.Now()), nil
}
