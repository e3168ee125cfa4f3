package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/pkg/metrics"
	fsmutil "github.com/hwfleet/hwfleet/internal/pkg/util/fsm"
	"github.com/hwfleet/hwfleet/pkg/log"
)

// DefaultTimeout bounds a single inspection.
const DefaultTimeout = 900 * time.Second

// Config controls one dispatch.
type Config struct {
	// Parallelism is the maximum number of inspections in flight. Values below 1 mean 1.
	Parallelism int

	// DryRun performs the re-check read but never mutates a node.
	DryRun bool

	// Timeout bounds each inspection. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// StateChecker reports which provision states inspection may start from.
// It is implemented by policy.Policy.
type StateChecker interface {
	Inspectable(state model.ProvisionState) bool
}

// Sink receives each outcome as soon as it is known.
// It is called from worker goroutines and must be safe for concurrent use.
type Sink func(outcome model.Outcome)

// Engine submits inspections for eligible nodes with bounded parallelism.
type Engine struct {
	cfg    Config
	hw     core.HardwareAuthority
	states StateChecker
	clock  clock.PassiveClock
	logger log.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg Config, hw core.HardwareAuthority, states StateChecker, clk clock.PassiveClock, logger log.Logger) *Engine {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{cfg: cfg, hw: hw, states: states, clock: clk, logger: logger}
}

// Dispatch runs every node through its lifecycle and blocks until all of them
// finished. Exactly one outcome is produced per distinct node id; a node failing
// never cancels the others. Outcomes are returned in completion order.
func (e *Engine) Dispatch(ctx context.Context, nodes []*model.NodeRecord, sink Sink) []model.Outcome {
	var (
		mu       sync.Mutex
		outcomes = make([]model.Outcome, 0, len(nodes))
		seen     = sets.New[string]()
	)

	// A plain group: worker errors are captured in outcomes, never propagated.
	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Parallelism)

	for _, node := range nodes {
		if seen.Has(node.ID) {
			e.logger.Warn("Dropping duplicate submission", "node", node.String())
			continue
		}
		seen.Insert(node.ID)

		g.Go(func() error {
			out := e.run(ctx, node)

			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()

			if sink != nil {
				sink(out)
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

func (e *Engine) run(ctx context.Context, node *model.NodeRecord) (out model.Outcome) {
	logger := e.logger.WithValues("node", node.String())
	start := e.clock.Now()
	lc := newLifecycle(node, e.recheck)

	metrics.InspectionsInFlight.Inc()
	defer func() {
		metrics.InspectionsInFlight.Dec()
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("%v", r), "Recovered from panic during dispatch")
			lc.outcome.Kind = model.OutcomeFailed
			lc.outcome.Err = fmt.Errorf("panic during dispatch: %v", r)
		}
		out = lc.outcome
		out.Duration = e.clock.Since(start)
	}()

	if err := lc.Event(ctx, EventVerify); err != nil {
		lc.fail(ctx, err)
		return
	}

	fresh, err := e.hw.GetNode(ctx, node.ID)
	if err != nil {
		logger.Error(err, "Failed to re-read node before inspection")
		lc.fail(ctx, fmt.Errorf("re-read node: %w", err))
		return
	}

	next := EventInspect
	if e.cfg.DryRun {
		next = EventDryRun
	}
	if err := lc.Event(ctx, next, fresh); err != nil {
		if canceled, cause := fsmutil.Canceled(err); canceled {
			reason := "transition canceled"
			var race *RaceError
			if errors.As(cause, &race) {
				reason = race.Reason
			}
			logger.Info("Skipping node changed since eligibility", "reason", reason)
			_ = lc.Event(ctx, EventSkip, reason)
			return
		}
		if fsmutil.IsRealError(err) {
			lc.fail(ctx, err)
			return
		}
	}

	if e.cfg.DryRun {
		logger.Info("Dry run, would start inspection", "provisionState", fresh.ProvisionState)
		return
	}

	logger.Info("Starting inspection", "provisionState", fresh.ProvisionState, "timeout", e.cfg.Timeout)
	ictx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	snapshot, err := e.hw.StartInspection(ictx, node.ID, e.cfg.Timeout)
	if err != nil {
		logger.Error(err, "Inspection failed")
		lc.fail(ctx, err)
		return
	}

	logger.Info("Inspection completed", "finishedAt", snapshot.LastInspectionFinishedAt)
	_ = lc.Event(ctx, EventComplete, snapshot)
	return
}

// recheck returns why a freshly read node must not be inspected, or "".
func (e *Engine) recheck(fresh *model.NodeRecord) string {
	switch {
	case fresh.HasInstance():
		return fmt.Sprintf("instance %s present", fresh.InstanceID)
	case fresh.Maintenance:
		return "node is in maintenance"
	case e.states != nil && !e.states.Inspectable(fresh.ProvisionState):
		return fmt.Sprintf("provision state %q is not inspectable", fresh.ProvisionState)
	}
	return ""
}
