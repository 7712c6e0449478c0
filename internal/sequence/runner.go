package sequence

import (
	"context"
	"fmt"
	"log"
	"time"

	"whatsapp-crm/internal/decision"
	"whatsapp-crm/internal/delivery"
	"whatsapp-crm/internal/models"
)

// Stores is the persistence slice the runner depends on.
type Stores interface {
	GetContact(ctx context.Context, waID string) (*models.Contact, error)
	GetSequence(ctx context.Context, id uint) (*models.Sequence, error)
	SetSequenceState(ctx context.Context, waID string, sequenceID *uint, position int, startedAt, waitUntil *time.Time) error
	WaitingEnrollments(ctx context.Context, now time.Time) ([]models.Contact, error)
}

type Decider interface {
	Decide(ctx context.Context, waID string) (decision.Decision, error)
}

type Sender interface {
	Send(ctx context.Context, waID string, dec decision.Decision, p *delivery.Payload) delivery.Result
}

// Runner drives a contact through a sequence: it asks the evaluator what to
// send next and hands the step to the same decide/dispatch pipeline used for
// one-off sends.
type Runner struct {
	Stores    Stores
	Decider   Decider
	Router    Sender
	Evaluator *Evaluator
	Now       func() time.Time
}

func NewRunner(stores Stores, decider Decider, router Sender, evaluator *Evaluator) *Runner {
	return &Runner{
		Stores:    stores,
		Decider:   decider,
		Router:    router,
		Evaluator: evaluator,
		Now:       time.Now,
	}
}

// Enroll starts a contact at the sequence's first step and executes it.
func (r *Runner) Enroll(ctx context.Context, waID string, sequenceID uint) error {
	contact, err := r.Stores.GetContact(ctx, waID)
	if err != nil {
		return err
	}

	seq, err := r.Stores.GetSequence(ctx, sequenceID)
	if err != nil {
		return err
	}
	if !seq.Enabled {
		return fmt.Errorf("sequence %d is disabled", sequenceID)
	}
	if len(seq.Steps) == 0 {
		return fmt.Errorf("sequence %d has no steps", sequenceID)
	}

	first := &seq.Steps[0]
	now := r.Now()
	if err := r.Stores.SetSequenceState(ctx, waID, &sequenceID, first.Position, &now, nil); err != nil {
		return err
	}
	contact.SequenceID = &sequenceID
	contact.SequencePosition = first.Position
	contact.SequenceStartedAt = &now

	return r.executeStep(ctx, contact, first)
}

// Advance evaluates the contact's current step and executes whatever comes
// next. Safe to call when nothing is due; it returns without side effects.
func (r *Runner) Advance(ctx context.Context, waID string) error {
	contact, err := r.Stores.GetContact(ctx, waID)
	if err != nil {
		return err
	}
	if contact.SequenceID == nil {
		return nil
	}
	now := r.Now()
	if contact.SequenceWaitUntil != nil && now.Before(*contact.SequenceWaitUntil) {
		return nil
	}

	seq, err := r.Stores.GetSequence(ctx, *contact.SequenceID)
	if err != nil {
		return err
	}
	if !seq.Enabled {
		return r.finish(ctx, contact)
	}

	current := findByPosition(seq.Steps, contact.SequencePosition)
	if current == nil {
		return r.finish(ctx, contact)
	}

	outcome, err := r.Evaluator.Evaluate(ctx, contact, seq.Steps, current)
	if err != nil {
		return err
	}
	if outcome.DataErr != nil {
		log.Printf("sequence %d step %d for %s: %v", seq.ID, current.ID, waID, outcome.DataErr)
	}
	if outcome.Terminal {
		return r.finish(ctx, contact)
	}

	return r.executeStep(ctx, contact, outcome.Next)
}

// Tick advances every enrollment whose pause has elapsed.
func (r *Runner) Tick(ctx context.Context) {
	contacts, err := r.Stores.WaitingEnrollments(ctx, r.Now())
	if err != nil {
		log.Printf("sequence tick: %v", err)
		return
	}
	for _, contact := range contacts {
		if err := r.Advance(ctx, contact.WaID); err != nil {
			log.Printf("sequence advance for %s: %v", contact.WaID, err)
		}
	}
}

func (r *Runner) executeStep(ctx context.Context, contact *models.Contact, step *models.SequenceStep) error {
	now := r.Now()

	if step.Type == "pause" {
		waitUntil := now.Add(time.Duration(step.PauseHours) * time.Hour)
		return r.Stores.SetSequenceState(ctx, contact.WaID, contact.SequenceID, step.Position, contact.SequenceStartedAt, &waitUntil)
	}

	payload, dec, err := r.buildSend(ctx, contact.WaID, step)
	if err != nil {
		return err
	}

	result := r.Router.Send(ctx, contact.WaID, dec, payload)
	if !result.Success {
		// Halt at the current step; the next Advance retries the transition.
		return fmt.Errorf("sequence step %d send failed: %s", step.ID, result.Error)
	}

	return r.Stores.SetSequenceState(ctx, contact.WaID, contact.SequenceID, step.Position, contact.SequenceStartedAt, nil)
}

// buildSend turns a step into a payload plus transport decision. Steps with
// a template attached force the template method; everything else goes
// through window evaluation.
func (r *Runner) buildSend(ctx context.Context, waID string, step *models.SequenceStep) (*delivery.Payload, decision.Decision, error) {
	payload := &delivery.Payload{StepID: &step.ID}

	switch step.ContentType {
	case "template":
		payload.Type = "template"
		payload.TemplateID = step.TemplateID
		return payload, decision.Forced(decision.MethodTemplate), nil
	case "image", "video", "audio", "document":
		payload.Type = step.ContentType
		payload.MediaID = step.Content
	default:
		payload.Type = "text"
		payload.Text = step.Content
	}

	dec, err := r.Decider.Decide(ctx, waID)
	if err != nil {
		// Conservative decision still delivered; the error is log-only.
		log.Printf("sequence decide for %s degraded to %s: %v", waID, dec.Method, err)
	}
	return payload, dec, nil
}

func (r *Runner) finish(ctx context.Context, contact *models.Contact) error {
	return r.Stores.SetSequenceState(ctx, contact.WaID, nil, 0, nil, nil)
}

func findByPosition(steps []models.SequenceStep, position int) *models.SequenceStep {
	for i := range steps {
		if steps[i].Position == position {
			return &steps[i]
		}
	}
	return nil
}
