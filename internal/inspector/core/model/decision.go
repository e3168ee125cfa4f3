package model

// Decision is the eligibility verdict for one node in one pass.
type Decision string

const (
	DecisionEligible            Decision = "Eligible"
	DecisionSkipMaintenance     Decision = "SkipMaintenance"
	DecisionSkipInstancePresent Decision = "SkipInstancePresent"
	DecisionSkipReserved        Decision = "SkipReserved"
	DecisionSkipLeaseImminent   Decision = "SkipLeaseImminent"
	DecisionSkipNotDue          Decision = "SkipNotDue"
	DecisionSkipProvisionState  Decision = "SkipProvisionState"
)

// SkipDecisions lists every skip reason in policy order.
var SkipDecisions = []Decision{
	DecisionSkipMaintenance,
	DecisionSkipInstancePresent,
	DecisionSkipReserved,
	DecisionSkipLeaseImminent,
	DecisionSkipNotDue,
	DecisionSkipProvisionState,
}

// Advisory is a read-only observation that never changes a Decision.
type Advisory string

const (
	// AdvisoryBootModeUnset: no boot_mode capability is set.
	AdvisoryBootModeUnset Advisory = "BootModeUnset"

	// AdvisoryBiosCapability: a bios capability key is present.
	AdvisoryBiosCapability Advisory = "BiosCapability"

	// AdvisoryProvideManageable: the node should be moved back to available now.
	AdvisoryProvideManageable Advisory = "ProvideManageable"

	// AdvisoryProvideNeeded: an operator should run provide for the node.
	AdvisoryProvideNeeded Advisory = "ProvideNeeded"
)

// Verdict is the full policy result for a node.
type Verdict struct {
	Decision   Decision
	Advisories []Advisory
}

// Has reports whether the verdict carries the advisory.
func (v Verdict) Has(a Advisory) bool {
	for _, got := range v.Advisories {
		if got == a {
			return true
		}
	}
	return false
}
