// Package delivery dispatches outbound messages over the transport the
// decision engine picked, with an explicit ordered fallback list.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"whatsapp-crm/internal/decision"
	"whatsapp-crm/internal/models"
)

// ErrTemplateNotApproved is a configuration error: an unapproved template is
// a content problem, not a transient failure, so it is never queued.
var ErrTemplateNotApproved = errors.New("template is not approved")

// AttemptStore records dispatch outcomes and contact bookkeeping.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error
	RecordOutbound(ctx context.Context, waID, transport string, at time.Time) error
	SaveMessage(ctx context.Context, msg *models.Message) error
}

// TemplateReader is used for the approval pre-check.
type TemplateReader interface {
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
}

// Notifier pushes delivery events to dashboard clients. May be nil.
type Notifier interface {
	BroadcastEvent(eventType string, data interface{})
}

type Router struct {
	store     AttemptStore
	templates TemplateReader
	notifier  Notifier
	direct    Strategy
	template  Strategy
	queue     Strategy
	now       func() time.Time
}

func NewRouter(store AttemptStore, templates TemplateReader, sender Sender, mapper VariableMapper, queue Enqueuer, notifier Notifier) *Router {
	return &Router{
		store:     store,
		templates: templates,
		notifier:  notifier,
		direct:    &directStrategy{sender: sender},
		template:  &templateStrategy{sender: sender, mapper: mapper},
		queue:     &queueStrategy{queue: queue},
		now:       time.Now,
	}
}

// strategiesFor builds the ordered attempt list. Direct sends that were not
// forced get a one-shot fallback to the queue; template sends never fall
// back; forced methods run alone so failures surface to the caller.
func (r *Router) strategiesFor(dec decision.Decision) []Strategy {
	switch dec.Method {
	case decision.MethodDirectAPI:
		if dec.Forced {
			return []Strategy{r.direct}
		}
		return []Strategy{r.direct, r.queue}
	case decision.MethodTemplate:
		return []Strategy{r.template}
	default:
		return []Strategy{r.queue}
	}
}

// Send attempts the strategies in order, stops at the first success, and
// records every attempt. Contact counters and the last-interaction stamp are
// updated exactly once per call, for the transport that won.
func (r *Router) Send(ctx context.Context, waID string, dec decision.Decision, p *Payload) Result {
	if dec.Method == decision.MethodTemplate {
		if err := r.checkTemplateApproved(ctx, p.TemplateID); err != nil {
			r.recordAttempt(ctx, waID, dec, p, string(decision.MethodTemplate), false, "", "", err)
			return Result{
				Success:       false,
				TransportUsed: decision.MethodTemplate,
				Reason:        dec.Reason,
				Error:         err.Error(),
			}
		}
	}

	var lastErr error
	for _, strategy := range r.strategiesFor(dec) {
		transport := string(strategy.Method())
		msgID, entryID, err := strategy.Attempt(ctx, waID, p)
		r.recordAttempt(ctx, waID, dec, p, transport, err == nil, msgID, entryID, err)

		if err != nil {
			lastErr = err
			log.Printf("delivery: %s attempt failed for %s: %v", transport, waID, err)
			continue
		}

		if err := r.store.RecordOutbound(ctx, waID, transport, r.now()); err != nil {
			log.Printf("delivery: failed to update counters for %s: %v", waID, err)
		}
		r.logOutboundMessage(ctx, waID, strategy.Method(), p)

		return Result{
			Success:           true,
			TransportUsed:     strategy.Method(),
			Reason:            dec.Reason,
			ProviderMessageID: msgID,
			QueueEntryID:      entryID,
		}
	}

	return Result{
		Success:       false,
		TransportUsed: dec.Method,
		Reason:        dec.Reason,
		Error:         fmt.Sprintf("all transports failed: %v", lastErr),
	}
}

func (r *Router) checkTemplateApproved(ctx context.Context, templateID string) error {
	if templateID == "" {
		return fmt.Errorf("template send without template id: %w", ErrTemplateNotApproved)
	}
	tmpl, err := r.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(tmpl.Status, "APPROVED") {
		return fmt.Errorf("template %s has status %s: %w", tmpl.ID, tmpl.Status, ErrTemplateNotApproved)
	}
	return nil
}

func (r *Router) recordAttempt(ctx context.Context, waID string, dec decision.Decision, p *Payload, transport string, success bool, msgID, entryID string, attemptErr error) {
	attempt := &models.DeliveryAttempt{
		WaID:              waID,
		Transport:         transport,
		Reason:            string(dec.Reason),
		Success:           success,
		ProviderMessageID: msgID,
		QueueEntryID:      entryID,
		StepID:            p.StepID,
	}
	if attemptErr != nil {
		attempt.ErrorMessage = attemptErr.Error()
	}
	if err := r.store.RecordAttempt(ctx, attempt); err != nil {
		log.Printf("delivery: failed to record attempt for %s: %v", waID, err)
	}
	if r.notifier != nil {
		r.notifier.BroadcastEvent("delivery_attempt", attempt)
	}
}

func (r *Router) logOutboundMessage(ctx context.Context, waID string, transport decision.Method, p *Payload) {
	status := "sent"
	if transport == decision.MethodQueuedAutomation {
		status = "queued"
	}
	content := p.queueContent()
	if p.Type == "template" {
		content = "Template: " + p.TemplateID
	}
	msg := &models.Message{
		WaID:    waID,
		Sender:  waID,
		Content: content,
		Type:    p.Type,
		Status:  status,
	}
	if msg.Type == "" {
		msg.Type = "text"
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		log.Printf("delivery: failed to log outbound message for %s: %v", waID, err)
	}
}
