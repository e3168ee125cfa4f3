package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning handler to an fsm callback. A returned
// error is stored on the event and surfaces from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Before is the callback key run before event fires.
func Before(event string) string { return "before_" + event }

// Enter is the callback key run on entering state.
func Enter(state string) string { return "enter_" + state }

// Canceled reports whether a guard canceled the transition and returns the
// cause passed to Event.Cancel, if any.
func Canceled(err error) (bool, error) {
	var canceled fsm.CanceledError
	if !errors.As(err, &canceled) {
		return false, nil
	}
	return true, canceled.Err
}

// IsRealError is false for nil and for the expected no-op outcomes of a
// transition (no transition, canceled).
func IsRealError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError

	if errors.As(err, &noTransition) || errors.As(err, &canceled) {
		return false
	}

	return true
}
