package coexistence

import (
	"context"
	"sync"
)

// Notifier pushes verification transitions to dashboard clients. May be nil.
type Notifier interface {
	BroadcastEvent(eventType string, data interface{})
}

type watch struct {
	cancel context.CancelFunc
	mu     sync.Mutex
	state  State
}

func (w *watch) set(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *watch) get() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Registry owns the active verification loops so the API surface can start,
// query and cancel them by phone number id.
type Registry struct {
	verifier *Verifier
	notifier Notifier

	mu     sync.Mutex
	active map[string]*watch
}

func NewRegistry(verifier *Verifier, notifier Notifier) *Registry {
	return &Registry{
		verifier: verifier,
		notifier: notifier,
		active:   make(map[string]*watch),
	}
}

// Start begins polling for the number, replacing any loop already running
// for it. Returns the initial pending state.
func (r *Registry) Start(phoneNumberID string) State {
	ctx, cancel := context.WithCancel(context.Background())
	w := &watch{
		cancel: cancel,
		state:  State{Status: StatusPending, NeedsAction: true},
	}

	r.mu.Lock()
	if prev, ok := r.active[phoneNumberID]; ok {
		prev.cancel()
	}
	r.active[phoneNumberID] = w
	r.mu.Unlock()

	go r.verifier.Run(ctx, phoneNumberID, func(s State) {
		w.set(s)
		if r.notifier != nil {
			r.notifier.BroadcastEvent("coexistence_update", map[string]interface{}{
				"phone_number_id": phoneNumberID,
				"state":           s,
			})
		}
	})

	return w.get()
}

// Cancel tears the loop down and makes it inert; no further callbacks fire.
func (r *Registry) Cancel(phoneNumberID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.active[phoneNumberID]
	if !ok {
		return false
	}
	w.cancel()
	delete(r.active, phoneNumberID)
	return true
}

// State returns the last observed state for a number.
func (r *Registry) State(phoneNumberID string) (State, bool) {
	r.mu.Lock()
	w, ok := r.active[phoneNumberID]
	r.mu.Unlock()
	if !ok {
		return State{}, false
	}
	return w.get(), true
}
