package ironic

import (
	"fmt"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/pkg/rest"
)

// node is the wire form of a bare metal node.
type node struct {
	UUID                 string         `json:"uuid"`
	Name                 *string        `json:"name"`
	ProvisionState       string         `json:"provision_state"`
	TargetProvisionState *string        `json:"target_provision_state"`
	PowerState           *string        `json:"power_state"`
	Maintenance          bool           `json:"maintenance"`
	Properties           map[string]any `json:"properties"`
	InspectionFinishedAt *string        `json:"inspection_finished_at"`
	InstanceUUID         *string        `json:"instance_uuid"`
	LastError            *string        `json:"last_error"`
}

type nodeList struct {
	Nodes []node `json:"nodes"`
	Next  string `json:"next"`
}

type provisionRequest struct {
	Target string `json:"target"`
}

func (n *node) toRecord() (*model.NodeRecord, error) {
	rec := &model.NodeRecord{
		ID:             n.UUID,
		Name:           deref(n.Name),
		ProvisionState: model.ProvisionState(n.ProvisionState),
		PowerState:     deref(n.PowerState),
		Maintenance:    n.Maintenance,
		InstanceID:     deref(n.InstanceUUID),
		Capabilities:   capabilities(n.Properties),
	}

	if ts := deref(n.InspectionFinishedAt); ts != "" {
		t, err := rest.ParseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("node %s inspection_finished_at: %w", n.UUID, err)
		}
		rec.LastInspectionFinishedAt = &t
	}
	return rec, nil
}

// capabilities reads properties.capabilities, which is normally the
// "key:value,key:value" string but is accepted as an object too.
func capabilities(props map[string]any) map[string]string {
	switch raw := props["capabilities"].(type) {
	case string:
		return model.ParseCapabilities(raw)
	case map[string]any:
		caps := make(map[string]string, len(raw))
		for k, v := range raw {
			caps[k] = fmt.Sprint(v)
		}
		return caps
	}
	return map[string]string{}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
