package report

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/pkg/log"
)

func node(id string) *model.NodeRecord {
	return &model.NodeRecord{ID: id, Name: "node-" + id}
}

func TestCollectorCounts(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCollector("pass-1", false, clk, log.NewFromCore(core))

	c.RecordDecision(node("a"), model.Verdict{Decision: model.DecisionEligible})
	c.RecordDecision(node("b"), model.Verdict{Decision: model.DecisionEligible})
	c.RecordDecision(node("c"), model.Verdict{Decision: model.DecisionSkipMaintenance})
	c.RecordDecision(node("d"), model.Verdict{Decision: model.DecisionSkipNotDue})
	c.RecordDecision(node("e"), model.Verdict{Decision: model.DecisionSkipNotDue})

	c.RecordOutcome(model.Outcome{Node: node("a"), Kind: model.OutcomeCompleted, Decision: model.DecisionEligible, Duration: time.Minute})
	c.RecordOutcome(model.Outcome{Node: node("b"), Kind: model.OutcomeFailed, Err: errors.New("inspect failed")})
	c.RecordProvide(node("f"), nil)
	c.RecordProvide(node("g"), errors.New("conflict"))

	clk.Step(5 * time.Minute)
	s := c.Summary()

	assert.Equal(t, "pass-1", s.PassID)
	assert.Equal(t, 5, s.Nodes)
	assert.Equal(t, 2, s.Eligible)
	assert.Equal(t, 1, s.Skipped[model.DecisionSkipMaintenance])
	assert.Equal(t, 2, s.Skipped[model.DecisionSkipNotDue])
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Submitted())
	require.Len(t, s.Failures, 1)
	assert.Equal(t, NodeFailure{NodeID: "b", Name: "node-b", Error: "inspect failed"}, s.Failures[0])
	assert.Equal(t, []string{"f"}, s.Provided)
	require.Len(t, s.ProvideFailures, 1)
	assert.Equal(t, 5*time.Minute, s.FinishedAt.Sub(s.StartedAt))

	assert.Equal(t, 1, logs.FilterMessage("Inspection failed").Len())
	assert.Equal(t, 2, logs.FilterMessage("Skipping node").FilterField(zapString("decision", "SkipNotDue")).Len())
}

func TestCollectorNilErrorStillCounts(t *testing.T) {
	c := NewCollector("p", false, clocktesting.NewFakeClock(time.Now()), nil)

	c.RecordOutcome(model.Outcome{Node: node("a"), Kind: model.OutcomeFailed})

	s := c.Summary()
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, "unknown error", s.Failures[0].Error)
}

func TestCollectorConcurrentOutcomes(t *testing.T) {
	c := NewCollector("p", true, clocktesting.NewFakeClock(time.Now()), nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordOutcome(model.Outcome{Node: node(fmt.Sprintf("n%02d", i)), Kind: model.OutcomeDryRunSkipped})
		}()
	}
	wg.Wait()

	s := c.Summary()
	assert.Equal(t, 50, s.DryRunSkipped)
	require.Len(t, s.Results, 50)
	assert.Equal(t, "n00", s.Results[0].NodeID)
}

func TestSummaryIsSnapshot(t *testing.T) {
	c := NewCollector("p", false, clocktesting.NewFakeClock(time.Now()), nil)
	c.RecordDecision(node("a"), model.Verdict{Decision: model.DecisionSkipReserved})

	first := c.Summary()
	c.RecordDecision(node("b"), model.Verdict{Decision: model.DecisionSkipReserved})

	assert.Equal(t, 1, first.Skipped[model.DecisionSkipReserved])
	assert.Equal(t, 2, c.Summary().Skipped[model.DecisionSkipReserved])
}

func TestSummaryRender(t *testing.T) {
	c := NewCollector("pass-42", false, clocktesting.NewFakeClock(time.Now()), nil)
	c.RecordDecision(node("a"), model.Verdict{Decision: model.DecisionSkipLeaseImminent})
	c.RecordOutcome(model.Outcome{Node: node("b"), Kind: model.OutcomeRaceSkipped, Reason: "instance abc present"})

	var buf bytes.Buffer
	c.Summary().Render(&buf)

	out := buf.String()
	assert.Contains(t, out, "pass-42")
	assert.Contains(t, out, "SkipLeaseImminent")
	assert.Contains(t, out, "RaceSkipped")
	assert.Contains(t, out, "instance abc present")
}

func TestCollectorDryRunProvideIsPlanned(t *testing.T) {
	c := NewCollector("pass-7", true, clocktesting.NewFakeClock(time.Now()), nil)
	c.RecordProvide(node("f"), nil)

	s := c.Summary()
	assert.Empty(t, s.Provided)
	assert.Equal(t, []string{"f"}, s.ProvidePlanned)

	var buf bytes.Buffer
	s.Render(&buf)
	assert.Contains(t, buf.String(), "PROVIDE PLANNED")
	assert.NotContains(t, buf.String(), "PROVIDED")
}

func zapString(key, value string) zapcore.Field {
	return zapcore.Field{Key: key, Type: zapcore.StringType, String: value}
}
