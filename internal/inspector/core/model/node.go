package model

import (
	"strings"
	"time"
)

// ProvisionState is the hardware authority's lifecycle state of a node.
type ProvisionState string

const (
	ProvisionStateEnroll        ProvisionState = "enroll"
	ProvisionStateManageable    ProvisionState = "manageable"
	ProvisionStateAvailable     ProvisionState = "available"
	ProvisionStateActive        ProvisionState = "active"
	ProvisionStateDeploying     ProvisionState = "deploying"
	ProvisionStateWaitCallBack  ProvisionState = "wait call-back"
	ProvisionStateDeleting      ProvisionState = "deleting"
	ProvisionStateError         ProvisionState = "error"
	ProvisionStateInspecting    ProvisionState = "inspecting"
	ProvisionStateInspectWait   ProvisionState = "inspect wait"
	ProvisionStateInspectFailed ProvisionState = "inspect failed"
)

// Provision state targets accepted by SetProvisionState.
const (
	TargetManage  = "manage"
	TargetInspect = "inspect"
	TargetProvide = "provide"
)

// IsInspecting reports whether the state belongs to the inspection sub-state-machine.
func (s ProvisionState) IsInspecting() bool {
	return s == ProvisionStateInspecting || s == ProvisionStateInspectWait
}

// NodeRecord is a point-in-time snapshot of one physical machine as reported
// by the hardware authority. Snapshots are never mutated once built.
type NodeRecord struct {
	ID             string
	Name           string
	ProvisionState ProvisionState
	PowerState     string
	Maintenance    bool

	// LastInspectionFinishedAt is nil when no inspection ever completed.
	LastInspectionFinishedAt *time.Time

	Capabilities map[string]string

	// InstanceID is non-empty while a workload is deployed on the node.
	InstanceID string
}

// HasInstance reports whether a workload is deployed on the node.
func (n *NodeRecord) HasInstance() bool {
	return n.InstanceID != ""
}

// String renders the node as id:name, the form used in every log line.
func (n *NodeRecord) String() string {
	return n.ID + ":" + n.Name
}

// ParseCapabilities decodes the "key:value,key:value" encoding used by the
// hardware authority. A key without a value maps to "".
func ParseCapabilities(raw string) map[string]string {
	caps := map[string]string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, _ := strings.Cut(item, ":")
		caps[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return caps
}
