package model

import "time"

// OutcomeKind classifies how a dispatched node finished.
type OutcomeKind string

const (
	OutcomeCompleted     OutcomeKind = "Completed"
	OutcomeDryRunSkipped OutcomeKind = "DryRunSkipped"
	OutcomeFailed        OutcomeKind = "Failed"

	// OutcomeRaceSkipped: the pre-mutation re-check found the node no longer safe.
	OutcomeRaceSkipped OutcomeKind = "RaceSkipped"
)

// Outcome is the result of dispatching one node.
type Outcome struct {
	// Node is the snapshot the node was submitted with.
	Node *NodeRecord

	Kind OutcomeKind

	// Decision is the policy decision the dispatch acted on.
	Decision Decision

	// Reason explains a RaceSkipped outcome.
	Reason string

	// Snapshot is the node as reported after inspection, or the fresh read in dry-run.
	Snapshot *NodeRecord

	Err      error
	Duration time.Duration
}
