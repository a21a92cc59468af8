package domain

import (
	"github.com/qmuntal/stateless"

	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

// newLifecycle builds the invoice state machine positioned at from.
//
//	DRAFT --send--> SENT --mark_paid--> PAID
//	DRAFT --cancel--> CANCELLED
//	SENT  --cancel--> CANCELLED
func newLifecycle(from Status) *stateless.StateMachine {
	sm := stateless.NewStateMachine(from)
	sm.Configure(StatusDraft).
		Permit(TransitionSend, StatusSent).
		Permit(TransitionCancel, StatusCancelled)
	sm.Configure(StatusSent).
		Permit(TransitionMarkPaid, StatusPaid).
		Permit(TransitionCancel, StatusCancelled)
	sm.Configure(StatusPaid)
	sm.Configure(StatusCancelled)
	return sm
}

// Next returns the status reached by applying t in from, or an
// InvalidTransitionError when the lifecycle does not allow it.
func Next(from Status, t Transition) (Status, error) {
	refused := apperror.InvalidTransitionError{Transition: string(t), Status: string(from)}
	if !from.Valid() {
		return from, refused
	}
	sm := newLifecycle(from)
	if err := sm.Fire(t); err != nil {
		return from, refused
	}
	to, ok := sm.MustState().(Status)
	if !ok {
		return from, refused
	}
	return to, nil
}

// Allowed lists the transitions available in s.
func Allowed(s Status) []Transition {
	var out []Transition
	for _, t := range Transitions {
		if _, err := Next(s, t); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// Verb is the past-tense label used in user-facing messages.
func (t Transition) Verb() string {
	switch t {
	case TransitionSend:
		return "sent"
	case TransitionMarkPaid:
		return "marked as paid"
	case TransitionCancel:
		return "cancelled"
	}
	return string(t)
}
