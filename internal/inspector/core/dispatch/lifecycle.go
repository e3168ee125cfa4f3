package dispatch

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	fsmutil "github.com/hwfleet/hwfleet/internal/pkg/util/fsm"
)

// Lifecycle states of one dispatched node.
const (
	StateQueued     = "queued"
	StateVerifying  = "verifying"
	StateInspecting = "inspecting"
	StateCompleted  = "completed"
	StateFailed     = "failed"
	StateSkipped    = "skipped"
	StateDryRun     = "dry-run"
)

const (
	// EventVerify starts the point-in-time re-check.
	EventVerify = "event_verify"
	// EventInspect (guarded) submits the inspection.
	EventInspect = "event_inspect"
	// EventDryRun (guarded) records what would have been submitted.
	EventDryRun = "event_dry_run"
	// EventSkip records a node that changed since the view was built.
	EventSkip = "event_skip"

	EventComplete = "event_complete"
	EventFail     = "event_fail"
)

// RaceError is the cancellation cause when the re-check finds a node no longer safe.
type RaceError struct {
	Reason string
}

func (e *RaceError) Error() string {
	return "node changed since eligibility: " + e.Reason
}

// lifecycle tracks a single node through one dispatch and builds its outcome.
type lifecycle struct {
	*fsm.FSM

	outcome model.Outcome
	recheck func(fresh *model.NodeRecord) string
}

func newLifecycle(node *model.NodeRecord, recheck func(*model.NodeRecord) string) *lifecycle {
	l := &lifecycle{
		outcome: model.Outcome{Node: node, Decision: model.DecisionEligible},
		recheck: recheck,
	}

	events := fsm.Events{
		{Name: EventVerify, Src: []string{StateQueued}, Dst: StateVerifying},
		{Name: EventInspect, Src: []string{StateVerifying}, Dst: StateInspecting},
		{Name: EventDryRun, Src: []string{StateVerifying}, Dst: StateDryRun},
		{Name: EventSkip, Src: []string{StateVerifying}, Dst: StateSkipped},
		{Name: EventComplete, Src: []string{StateInspecting}, Dst: StateCompleted},
		{Name: EventFail, Src: []string{StateQueued, StateVerifying, StateInspecting}, Dst: StateFailed},
	}

	callbacks := fsm.Callbacks{
		fsmutil.Before(EventInspect): fsmutil.WrapEvent(l.GuardStillSafe),
		fsmutil.Before(EventDryRun):  fsmutil.WrapEvent(l.GuardStillSafe),

		fsmutil.Enter(StateCompleted): fsmutil.WrapEvent(l.ActionEnterCompleted),
		fsmutil.Enter(StateFailed):    fsmutil.WrapEvent(l.ActionEnterFailed),
		fsmutil.Enter(StateSkipped):   fsmutil.WrapEvent(l.ActionEnterSkipped),
		fsmutil.Enter(StateDryRun):    fsmutil.WrapEvent(l.ActionEnterDryRun),
	}

	l.FSM = fsm.NewFSM(StateQueued, events, callbacks)
	return l
}

// GuardStillSafe re-validates the fresh snapshot in Args[0] and cancels the
// transition with a RaceError when the node must no longer be touched.
func (l *lifecycle) GuardStillSafe(_ context.Context, e *fsm.Event) error {
	fresh := e.Args[0].(*model.NodeRecord)
	l.outcome.Snapshot = fresh
	if reason := l.recheck(fresh); reason != "" {
		e.Cancel(&RaceError{Reason: reason})
	}
	return nil
}

func (l *lifecycle) ActionEnterCompleted(_ context.Context, e *fsm.Event) error {
	l.outcome.Kind = model.OutcomeCompleted
	if len(e.Args) > 0 {
		if snap, ok := e.Args[0].(*model.NodeRecord); ok && snap != nil {
			l.outcome.Snapshot = snap
		}
	}
	return nil
}

func (l *lifecycle) ActionEnterFailed(_ context.Context, e *fsm.Event) error {
	l.outcome.Kind = model.OutcomeFailed
	l.outcome.Err = errors.New("unknown error")
	if len(e.Args) > 0 {
		if err, ok := e.Args[0].(error); ok && err != nil {
			l.outcome.Err = err
		}
	}
	return nil
}

func (l *lifecycle) ActionEnterSkipped(_ context.Context, e *fsm.Event) error {
	l.outcome.Kind = model.OutcomeRaceSkipped
	if len(e.Args) > 0 {
		if reason, ok := e.Args[0].(string); ok {
			l.outcome.Reason = reason
		}
	}
	return nil
}

func (l *lifecycle) ActionEnterDryRun(_ context.Context, _ *fsm.Event) error {
	l.outcome.Kind = model.OutcomeDryRunSkipped
	return nil
}

// fail moves the node to failed from whatever non-terminal state it is in.
func (l *lifecycle) fail(ctx context.Context, err error) {
	_ = l.Event(ctx, EventFail, err)
}
