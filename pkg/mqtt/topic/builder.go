package topic

import (
	"fmt"
)

// Topic segments published by the inspector. Consumers subscribe with
// wildcards such as {root}/inspection/outcome/+.
const (
	// SuffixOutcome carries one event per dispatched node.
	// Structure: {root}/inspection/outcome/{nodeID}
	SuffixOutcome = "inspection/outcome"

	// SuffixSummary carries one event per pass.
	// Structure: {root}/inspection/summary/{passID}
	SuffixSummary = "inspection/summary"

	// Wildcard is the single-level MQTT wildcard.
	Wildcard = "+"
)

// TopicBuilder constructs topic strings under a fixed root namespace.
type TopicBuilder struct {
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

// Outcome returns the topic for an inspection outcome of one node.
func (b *TopicBuilder) Outcome(nodeID string) string {
	return b.build(SuffixOutcome, nodeID)
}

// OutcomeWildcard matches outcomes of every node.
func (b *TopicBuilder) OutcomeWildcard() string {
	return b.build(SuffixOutcome, Wildcard)
}

// Summary returns the topic for a pass summary.
func (b *TopicBuilder) Summary(passID string) string {
	return b.build(SuffixSummary, passID)
}

func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
