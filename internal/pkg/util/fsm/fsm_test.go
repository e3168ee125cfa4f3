package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errGuard = errors.New("guard says no")

func newMachine(guard func(ctx context.Context, e *fsm.Event) error) *fsm.FSM {
	return fsm.NewFSM("idle",
		fsm.Events{
			{Name: "go", Src: []string{"idle"}, Dst: "busy"},
		},
		fsm.Callbacks{
			Before("go"): WrapEvent(guard),
		},
	)
}

func TestWrapEventSurfacesError(t *testing.T) {
	m := newMachine(func(context.Context, *fsm.Event) error { return errGuard })

	err := m.Event(context.Background(), "go")
	require.Error(t, err)
	assert.True(t, IsRealError(err))
}

func TestCanceledCause(t *testing.T) {
	m := newMachine(func(_ context.Context, e *fsm.Event) error {
		e.Cancel(errGuard)
		return nil
	})

	err := m.Event(context.Background(), "go")
	require.Error(t, err)
	assert.False(t, IsRealError(err))

	canceled, cause := Canceled(err)
	assert.True(t, canceled)
	assert.ErrorIs(t, cause, errGuard)
	assert.Equal(t, "idle", m.Current())
}

func TestIsRealError(t *testing.T) {
	assert.False(t, IsRealError(nil))
	assert.False(t, IsRealError(fsm.NoTransitionError{}))
	assert.True(t, IsRealError(fsm.InvalidEventError{Event: "x", State: "y"}))

	canceled, _ := Canceled(errGuard)
	assert.False(t, canceled)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "before_go", Before("go"))
	assert.Equal(t, "enter_busy", Enter("busy"))
}
