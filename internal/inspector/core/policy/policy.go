package policy

import (
	"slices"
	"time"

	"k8s.io/utils/clock"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
)

// Config holds the operator-tunable parts of the eligibility policy.
type Config struct {
	// ExpireDays is the staleness threshold for the last finished inspection.
	ExpireDays int

	// LeaseBuffer is the minimum time left before the next reservation starts.
	LeaseBuffer time.Duration

	ReinspectFailed   bool
	ProvideManageable bool
}

// Policy decides whether a node is due and safe for inspection. It performs
// no I/O; the same inputs at the same clock time always yield the same verdict.
type Policy struct {
	cfg   Config
	clock clock.PassiveClock
}

func New(cfg Config, clk clock.PassiveClock) *Policy {
	return &Policy{cfg: cfg, clock: clk}
}

// Classify returns the decision for node. First matching rule wins.
// A node inside an active reservation window is never eligible.
func (p *Policy) Classify(node *model.NodeRecord, ann model.ReservationAnnotation) model.Decision {
	now := p.clock.Now()

	switch {
	case node.Maintenance:
		return model.DecisionSkipMaintenance
	case node.HasInstance():
		return model.DecisionSkipInstancePresent
	case ann.Reserved:
		return model.DecisionSkipReserved
	case p.leaseImminent(ann, now):
		return model.DecisionSkipLeaseImminent
	case !NeedsInspection(node, p.interval(), now):
		return model.DecisionSkipNotDue
	case !p.Inspectable(node.ProvisionState):
		return model.DecisionSkipProvisionState
	}
	return model.DecisionEligible
}

// Evaluate returns the decision together with the advisories raised for node.
func (p *Policy) Evaluate(node *model.NodeRecord, ann model.ReservationAnnotation) model.Verdict {
	v := model.Verdict{Decision: p.Classify(node, ann)}

	if NeedsBootModeSet(node) {
		v.Advisories = append(v.Advisories, model.AdvisoryBootModeUnset)
	}
	if HasBiosCapability(node) {
		v.Advisories = append(v.Advisories, model.AdvisoryBiosCapability)
	}

	if !node.Maintenance &&
		node.ProvisionState == model.ProvisionStateManageable &&
		!NeedsInspection(node, p.interval(), p.clock.Now()) {
		if p.cfg.ProvideManageable {
			v.Advisories = append(v.Advisories, model.AdvisoryProvideManageable)
		} else {
			v.Advisories = append(v.Advisories, model.AdvisoryProvideNeeded)
		}
	}

	return v
}

// Inspectable reports whether inspection may be started from state.
func (p *Policy) Inspectable(state model.ProvisionState) bool {
	return slices.Contains(p.InspectableStates(), state)
}

// InspectableStates returns the provision states inspection may start from.
func (p *Policy) InspectableStates() []model.ProvisionState {
	states := []model.ProvisionState{model.ProvisionStateAvailable, model.ProvisionStateManageable}
	if p.cfg.ReinspectFailed {
		states = append(states, model.ProvisionStateInspectFailed)
	}
	return states
}

func (p *Policy) interval() time.Duration {
	return time.Duration(p.cfg.ExpireDays) * 24 * time.Hour
}

func (p *Policy) leaseImminent(ann model.ReservationAnnotation, now time.Time) bool {
	if ann.LeaseImminent {
		return true
	}
	return ann.NextReservationStart != nil && ann.NextReservationStart.Sub(now) <= p.cfg.LeaseBuffer
}

// NeedsInspection reports whether the last finished inspection is older than
// interval. A node that never finished an inspection always needs one.
func NeedsInspection(node *model.NodeRecord, interval time.Duration, now time.Time) bool {
	if node.LastInspectionFinishedAt == nil {
		return true
	}
	return now.Sub(*node.LastInspectionFinishedAt) > interval
}

// NeedsBootModeSet reports whether the boot_mode capability is missing.
func NeedsBootModeSet(node *model.NodeRecord) bool {
	_, ok := node.Capabilities["boot_mode"]
	return !ok
}

// HasBiosCapability reports whether a bios capability key is present.
func HasBiosCapability(node *model.NodeRecord) bool {
	_, ok := node.Capabilities["bios"]
	return ok
}
