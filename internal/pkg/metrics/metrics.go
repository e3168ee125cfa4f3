package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every hwfleet metric and is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// PassesTotal counts reconciliation passes by result (success/failed).
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwfleet_inspector_passes_total",
			Help: "Total number of reconciliation passes.",
		},
		[]string{"result"},
	)

	// LastPassTimestamp is the unix time the last pass finished.
	LastPassTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hwfleet_inspector_last_pass_timestamp_seconds",
			Help: "Unix time the last reconciliation pass finished.",
		},
	)

	// DecisionsTotal counts eligibility decisions.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwfleet_inspector_decisions_total",
			Help: "Total number of eligibility decisions by decision.",
		},
		[]string{"decision"},
	)

	// OutcomesTotal counts dispatch outcomes.
	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwfleet_inspector_outcomes_total",
			Help: "Total number of dispatch outcomes by kind.",
		},
		[]string{"kind"},
	)

	// ProvideActionsTotal counts manageable nodes moved back to available (mode: live/dry-run).
	ProvideActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwfleet_inspector_provide_actions_total",
			Help: "Total number of provide actions on fresh manageable nodes.",
		},
		[]string{"mode"},
	)

	// InspectionsInFlight is the number of nodes currently held by a dispatch worker.
	InspectionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hwfleet_inspector_inspections_in_flight",
			Help: "Number of nodes currently being dispatched.",
		},
	)

	// InspectionDuration records how long each dispatched node took.
	InspectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hwfleet_inspector_inspection_duration_seconds",
			Help:    "Duration of node dispatch by outcome kind.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800},
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		PassesTotal,
		LastPassTimestamp,
		DecisionsTotal,
		OutcomesTotal,
		ProvideActionsTotal,
		InspectionsInFlight,
		InspectionDuration,
	)
}
