// Package sequence advances drip sequences: a branching state machine whose
// next step depends on customer replies, keyword matches and elapsed time.
package sequence

import (
	"context"
	"errors"
	"time"

	"whatsapp-crm/internal/models"
)

// Condition types a step may carry.
const (
	ConditionNone              = "none"
	ConditionIfResponded       = "if_responded"
	ConditionIfNotResponded    = "if_not_responded"
	ConditionIfMessageContains = "if_message_contains"
)

// ErrNoKeywords flags a keyword condition with an empty keyword set. A data
// integrity violation the authoring surface should prevent; the evaluator
// treats the condition as false and keeps going.
var ErrNoKeywords = errors.New("keyword condition has no keywords configured")

// MessageReader is the inbound-message lookup the evaluator depends on.
type MessageReader interface {
	HasInboundSince(ctx context.Context, waID string, since time.Time) (bool, error)
	LastInbound(ctx context.Context, waID string) (*models.Message, error)
}

// Outcome is the result of evaluating one step's transition.
type Outcome struct {
	ConditionMet bool
	Next         *models.SequenceStep // nil when the sequence ends here
	Terminal     bool
	DataErr      error // non-fatal data problem, e.g. ErrNoKeywords
}

type Evaluator struct {
	Messages MessageReader
}

func NewEvaluator(messages MessageReader) *Evaluator {
	return &Evaluator{Messages: messages}
}

// Evaluate runs the current step's condition and resolves the next step:
// explicit branch target first, linear order otherwise. A dangling branch
// target or the end of the list terminates the sequence, which is not an
// error.
func (e *Evaluator) Evaluate(ctx context.Context, contact *models.Contact, steps []models.SequenceStep, current *models.SequenceStep) (Outcome, error) {
	met, dataErr, err := e.evalCondition(ctx, contact, current)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{ConditionMet: met, DataErr: dataErr}

	var branch *uint
	if met {
		branch = current.NextOnTrue
	} else {
		branch = current.NextOnFalse
	}

	if branch != nil {
		if target := findByID(steps, *branch); target != nil {
			out.Next = target
			return out, nil
		}
		// Referenced target does not exist: immediate termination.
		out.Terminal = true
		return out, nil
	}

	if next := findAfterPosition(steps, current.Position); next != nil {
		out.Next = next
		return out, nil
	}

	out.Terminal = true
	return out, nil
}

func (e *Evaluator) evalCondition(ctx context.Context, contact *models.Contact, step *models.SequenceStep) (met bool, dataErr, err error) {
	switch step.Condition {
	case ConditionNone, "":
		return true, nil, nil

	case ConditionIfResponded, ConditionIfNotResponded:
		since := contact.CreatedAt
		if contact.SequenceStartedAt != nil {
			since = *contact.SequenceStartedAt
		}
		responded, err := e.Messages.HasInboundSince(ctx, contact.WaID, since)
		if err != nil {
			return false, nil, err
		}
		if step.Condition == ConditionIfNotResponded {
			return !responded, nil, nil
		}
		return responded, nil, nil

	case ConditionIfMessageContains:
		keywords := ParseKeywords(step.Keywords)
		if len(keywords) == 0 {
			return false, ErrNoKeywords, nil
		}
		last, err := e.Messages.LastInbound(ctx, contact.WaID)
		if err != nil {
			return false, nil, err
		}
		if last == nil {
			return false, nil, nil
		}
		return containsAny(last.Content, keywords), nil, nil

	default:
		// Unknown condition types behave like none so a bad author cannot
		// strand a contact mid-sequence.
		return true, nil, nil
	}
}

func findByID(steps []models.SequenceStep, id uint) *models.SequenceStep {
	for i := range steps {
		if steps[i].ID == id {
			return &steps[i]
		}
	}
	return nil
}

func findAfterPosition(steps []models.SequenceStep, position int) *models.SequenceStep {
	var next *models.SequenceStep
	for i := range steps {
		if steps[i].Position <= position {
			continue
		}
		if next == nil || steps[i].Position < next.Position {
			next = &steps[i]
		}
	}
	return next
}
