// Package coexistence tracks whether a freshly connected phone number has
// completed the one-time manual activation required before direct-API
// sending is possible.
package coexistence

import (
	"context"
	"errors"
	"time"

	"whatsapp-crm/internal/whatsapp"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConnected Status = "connected"
	StatusFailed    Status = "failed"
)

// State is the externally visible verification state for a phone number.
type State struct {
	Status      Status `json:"status"`
	NeedsAction bool   `json:"needs_action"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"last_error,omitempty"`
}

// StatusChecker reads the provider-side verification status for a number.
type StatusChecker interface {
	CheckNumberStatus(ctx context.Context, phoneNumberID string) (string, error)
}

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// Verifier polls the provider until the number verifies, fails, or the
// caller cancels.
type Verifier struct {
	Checker     StatusChecker
	Interval    time.Duration
	MaxAttempts int
}

func NewVerifier(checker StatusChecker, interval time.Duration, maxAttempts int) *Verifier {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Verifier{Checker: checker, Interval: interval, MaxAttempts: maxAttempts}
}

// Run polls until a terminal state or cancellation. notify fires from the
// polling goroutine on every tick; once ctx is cancelled no further
// callbacks fire, and in-flight responses are discarded rather than acted
// on. Cancellation is the caller's context.
func (v *Verifier) Run(ctx context.Context, phoneNumberID string, notify func(State)) {
	state := State{Status: StatusPending, NeedsAction: true}
	ticker := time.NewTicker(v.Interval)
	defer ticker.Stop()

	for {
		state.Attempts++
		status, err := v.Checker.CheckNumberStatus(ctx, phoneNumberID)

		// A response that lands after cancellation must not produce a
		// callback.
		if ctx.Err() != nil {
			return
		}

		switch {
		case err == nil && status == "VERIFIED":
			state.Status = StatusConnected
			state.NeedsAction = false
			state.LastError = ""
			notify(state)
			return

		case isProviderRejection(err):
			state.Status = StatusFailed
			state.NeedsAction = false
			state.LastError = err.Error()
			notify(state)
			return

		default:
			if err != nil {
				state.LastError = err.Error()
			} else {
				state.LastError = ""
			}
			if state.Attempts >= v.MaxAttempts {
				state.Status = StatusFailed
				state.NeedsAction = false
				notify(state)
				return
			}
			notify(state)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isProviderRejection distinguishes an explicit provider "no" (Graph 4xx/5xx
// response) from a transient transport failure, which keeps polling.
func isProviderRejection(err error) bool {
	var apiErr *whatsapp.APIError
	return errors.As(err, &apiErr)
}
