package core

import (
	"context"
	"time"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
)

// HardwareAuthority is the service of record for node provisioning state.
// It is implemented by the Ironic adapter.
type HardwareAuthority interface {
	// ListNodes returns every node with the given field projection in one bulk read.
	ListNodes(ctx context.Context, fields []string) ([]*model.NodeRecord, error)

	// GetNode returns a fresh point-in-time snapshot of one node.
	GetNode(ctx context.Context, id string) (*model.NodeRecord, error)

	// StartInspection inspects the node and blocks until it finishes or timeout elapses.
	StartInspection(ctx context.Context, id string, timeout time.Duration) (*model.NodeRecord, error)

	// SetProvisionState requests a provision state transition without waiting for it.
	SetProvisionState(ctx context.Context, id string, target string) error
}

// ReservationAuthority is the service of record for host leases.
// It is implemented by the Blazar adapter.
type ReservationAuthority interface {
	// ListHostAllocations returns the allocations of every reservable host.
	ListHostAllocations(ctx context.Context) ([]model.HostAllocation, error)

	// GetHost resolves a reservation resource id to its host record.
	GetHost(ctx context.Context, resourceID string) (*model.Host, error)
}
