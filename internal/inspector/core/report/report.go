// Package report aggregates the decisions and outcomes of one pass.
package report

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/gosuri/uitable"
	"k8s.io/utils/clock"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/pkg/metrics"
	"github.com/hwfleet/hwfleet/pkg/log"
)

// NodeFailure is the per-node detail of a failed dispatch or provide action.
type NodeFailure struct {
	NodeID string `json:"nodeId"`
	Name   string `json:"name"`
	Error  string `json:"error"`
}

// NodeResult is one dispatched node as recorded in the summary.
type NodeResult struct {
	NodeID          string            `json:"nodeId"`
	Name            string            `json:"name"`
	Kind            model.OutcomeKind `json:"kind"`
	Reason          string            `json:"reason,omitempty"`
	Error           string            `json:"error,omitempty"`
	DurationSeconds float64           `json:"durationSeconds"`
}

// Summary is the final report of one pass.
type Summary struct {
	PassID     string    `json:"passId"`
	DryRun     bool      `json:"dryRun"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Nodes is the number of nodes classified.
	Nodes    int                    `json:"nodes"`
	Eligible int                    `json:"eligible"`
	Skipped  map[model.Decision]int `json:"skipped"`

	Completed     int `json:"completed"`
	DryRunSkipped int `json:"dryRunSkipped"`
	RaceSkipped   int `json:"raceSkipped"`
	Failed        int `json:"failed"`

	Failures []NodeFailure `json:"failures,omitempty"`
	Results  []NodeResult  `json:"results,omitempty"`

	// Provided lists manageable nodes moved back to available.
	Provided []string `json:"provided,omitempty"`
	// ProvidePlanned lists nodes a dry run would have moved back to available.
	ProvidePlanned  []string      `json:"providePlanned,omitempty"`
	ProvideFailures []NodeFailure `json:"provideFailures,omitempty"`
}

// Submitted is the number of nodes handed to the dispatch engine.
func (s *Summary) Submitted() int {
	return s.Completed + s.DryRunSkipped + s.RaceSkipped + s.Failed
}

// Collector accumulates pass events. It is safe for concurrent use and never fails.
type Collector struct {
	mu sync.Mutex

	clock   clock.PassiveClock
	logger  log.Logger
	summary Summary
}

// NewCollector starts collecting the pass identified by passID.
func NewCollector(passID string, dryRun bool, clk clock.PassiveClock, logger log.Logger) *Collector {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Collector{
		clock:  clk,
		logger: logger,
		summary: Summary{
			PassID:    passID,
			DryRun:    dryRun,
			StartedAt: clk.Now(),
			Skipped:   map[model.Decision]int{},
		},
	}
}

// RecordDecision records the eligibility verdict for node.
func (c *Collector) RecordDecision(node *model.NodeRecord, v model.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.summary.Nodes++
	metrics.DecisionsTotal.WithLabelValues(string(v.Decision)).Inc()

	if v.Decision == model.DecisionEligible {
		c.summary.Eligible++
		c.logger.Info("Node is eligible for inspection", "node", node.String(), "provisionState", node.ProvisionState,
			"lastInspection", node.LastInspectionFinishedAt)
		return
	}
	c.summary.Skipped[v.Decision]++
	c.logger.Debug("Skipping node", "node", node.String(), "decision", string(v.Decision), "provisionState", string(node.ProvisionState))
}

// RecordOutcome records the result of dispatching one node.
func (c *Collector) RecordOutcome(o model.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics.OutcomesTotal.WithLabelValues(string(o.Kind)).Inc()
	metrics.InspectionDuration.WithLabelValues(string(o.Kind)).Observe(o.Duration.Seconds())

	result := NodeResult{
		NodeID:          o.Node.ID,
		Name:            o.Node.Name,
		Kind:            o.Kind,
		Reason:          o.Reason,
		DurationSeconds: o.Duration.Seconds(),
	}

	switch o.Kind {
	case model.OutcomeCompleted:
		c.summary.Completed++
		c.logger.Info("Inspection completed", "node", o.Node.String(), "duration", o.Duration)
	case model.OutcomeDryRunSkipped:
		c.summary.DryRunSkipped++
		c.logger.Info("Dry run, inspection not started", "node", o.Node.String(), "decision", o.Decision)
	case model.OutcomeRaceSkipped:
		c.summary.RaceSkipped++
		c.logger.Warn("Node changed before inspection, skipped", "node", o.Node.String(), "reason", o.Reason)
	default:
		c.summary.Failed++
		msg := errorString(o.Err)
		result.Error = msg
		c.summary.Failures = append(c.summary.Failures, NodeFailure{NodeID: o.Node.ID, Name: o.Node.Name, Error: msg})
		c.logger.Error(o.Err, "Inspection failed", "node", o.Node.String(), "duration", o.Duration)
	}

	c.summary.Results = append(c.summary.Results, result)
}

// RecordProvide records a provide action on a fresh manageable node. err is nil on success.
// In a dry run the node is recorded as planned, never as provided.
func (c *Collector) RecordProvide(node *model.NodeRecord, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.summary.ProvideFailures = append(c.summary.ProvideFailures, NodeFailure{NodeID: node.ID, Name: node.Name, Error: err.Error()})
		c.logger.Error(err, "Failed to move node back to available", "node", node.String())
		return
	}

	if c.summary.DryRun {
		metrics.ProvideActionsTotal.WithLabelValues("dry-run").Inc()
		c.summary.ProvidePlanned = append(c.summary.ProvidePlanned, node.ID)
		c.logger.Info("Dry run, would move node back to available", "node", node.String())
		return
	}
	metrics.ProvideActionsTotal.WithLabelValues("live").Inc()
	c.summary.Provided = append(c.summary.Provided, node.ID)
	c.logger.Info("Moved node back to available", "node", node.String())
}

// Summary closes the pass and returns a copy of the aggregated report.
func (c *Collector) Summary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.summary
	s.FinishedAt = c.clock.Now()
	s.Skipped = make(map[model.Decision]int, len(c.summary.Skipped))
	for k, v := range c.summary.Skipped {
		s.Skipped[k] = v
	}
	s.Failures = append([]NodeFailure(nil), c.summary.Failures...)
	s.Results = append([]NodeResult(nil), c.summary.Results...)
	s.Provided = append([]string(nil), c.summary.Provided...)
	s.ProvidePlanned = append([]string(nil), c.summary.ProvidePlanned...)
	s.ProvideFailures = append([]NodeFailure(nil), c.summary.ProvideFailures...)

	sort.Slice(s.Results, func(i, j int) bool { return s.Results[i].NodeID < s.Results[j].NodeID })
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].NodeID < s.Failures[j].NodeID })
	return &s
}

// Render writes the summary as human readable tables.
func (s *Summary) Render(w io.Writer) {
	counts := uitable.New()
	counts.AddRow("PASS", s.PassID)
	counts.AddRow("DRY RUN", s.DryRun)
	counts.AddRow("NODES", s.Nodes)
	counts.AddRow("ELIGIBLE", s.Eligible)
	for _, d := range model.SkipDecisions {
		counts.AddRow(string(d), s.Skipped[d])
	}
	counts.AddRow("COMPLETED", s.Completed)
	counts.AddRow("DRY RUN SKIPPED", s.DryRunSkipped)
	counts.AddRow("RACE SKIPPED", s.RaceSkipped)
	counts.AddRow("FAILED", s.Failed)
	if s.DryRun {
		counts.AddRow("PROVIDE PLANNED", len(s.ProvidePlanned))
	} else {
		counts.AddRow("PROVIDED", len(s.Provided))
	}
	fmt.Fprintln(w, counts)

	if len(s.Results) == 0 {
		return
	}

	results := uitable.New()
	results.MaxColWidth = 80
	results.Wrap = true
	results.AddRow("NODE", "NAME", "RESULT", "DURATION", "DETAIL")
	for _, r := range s.Results {
		detail := r.Reason
		if r.Error != "" {
			detail = r.Error
		}
		results.AddRow(r.NodeID, r.Name, r.Kind, time.Duration(r.DurationSeconds*float64(time.Second)).Round(time.Second), detail)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, results)
}

func errorString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
