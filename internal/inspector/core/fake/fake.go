// Package fake provides in-memory authorities for tests.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
)

// ErrNotFound is returned for unknown node or host ids.
var ErrNotFound = errors.New("not found")

var (
	_ core.HardwareAuthority    = (*Hardware)(nil)
	_ core.ReservationAuthority = (*Reservation)(nil)
)

// InspectFunc overrides the behaviour of StartInspection for one node.
type InspectFunc func(ctx context.Context, node *model.NodeRecord) (*model.NodeRecord, error)

// ProvisionCall records one SetProvisionState request.
type ProvisionCall struct {
	ID     string
	Target string
}

// Hardware is an in-memory HardwareAuthority.
type Hardware struct {
	mu sync.Mutex

	nodes       map[string]*model.NodeRecord
	order       []string
	inspectFunc map[string]InspectFunc

	// ListErr and GetErr force failures of the corresponding calls.
	ListErr error
	GetErr  error

	// OnGet, when set, replaces the node returned by GetNode.
	OnGet func(n *model.NodeRecord) *model.NodeRecord

	listCalls   int
	getCalls    map[string]int
	inspections map[string]int
	inFlight    int
	maxInFlight int
	provisions  []ProvisionCall
}

// NewHardware returns a Hardware holding copies of nodes.
func NewHardware(nodes ...*model.NodeRecord) *Hardware {
	h := &Hardware{
		nodes:       map[string]*model.NodeRecord{},
		inspectFunc: map[string]InspectFunc{},
		getCalls:    map[string]int{},
		inspections: map[string]int{},
	}
	for _, n := range nodes {
		cp := *n
		h.nodes[n.ID] = &cp
		h.order = append(h.order, n.ID)
	}
	return h
}

// SetInspectFunc installs fn for node id.
func (h *Hardware) SetInspectFunc(id string, fn InspectFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inspectFunc[id] = fn
}

func (h *Hardware) ListNodes(_ context.Context, _ []string) ([]*model.NodeRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listCalls++
	if h.ListErr != nil {
		return nil, h.ListErr
	}
	out := make([]*model.NodeRecord, 0, len(h.order))
	for _, id := range h.order {
		cp := *h.nodes[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (h *Hardware) GetNode(_ context.Context, id string) (*model.NodeRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.getCalls[id]++
	if h.GetErr != nil {
		return nil, h.GetErr
	}
	n, ok := h.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	cp := *n
	if h.OnGet != nil {
		return h.OnGet(&cp), nil
	}
	return &cp, nil
}

func (h *Hardware) StartInspection(ctx context.Context, id string, timeout time.Duration) (*model.NodeRecord, error) {
	h.mu.Lock()
	n, ok := h.nodes[id]
	if !ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	cp := *n
	fn := h.inspectFunc[id]
	h.inspections[id]++
	h.inFlight++
	if h.inFlight > h.maxInFlight {
		h.maxInFlight = h.inFlight
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.inFlight--
		h.mu.Unlock()
	}()

	if fn != nil {
		return fn(ctx, &cp)
	}
	finished := time.Now().UTC()
	cp.LastInspectionFinishedAt = &finished
	return &cp, nil
}

func (h *Hardware) SetProvisionState(_ context.Context, id string, target string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.nodes[id]; !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	h.provisions = append(h.provisions, ProvisionCall{ID: id, Target: target})
	return nil
}

// ListCalls returns the number of ListNodes calls.
func (h *Hardware) ListCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listCalls
}

// GetCalls returns the number of GetNode calls for id.
func (h *Hardware) GetCalls(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.getCalls[id]
}

// Inspections returns the number of StartInspection calls for id.
func (h *Hardware) Inspections(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inspections[id]
}

// TotalInspections returns the number of StartInspection calls for all nodes.
func (h *Hardware) TotalInspections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, c := range h.inspections {
		total += c
	}
	return total
}

// MaxInFlight returns the highest number of concurrent StartInspection calls seen.
func (h *Hardware) MaxInFlight() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxInFlight
}

// Provisions returns the recorded SetProvisionState calls.
func (h *Hardware) Provisions() []ProvisionCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ProvisionCall(nil), h.provisions...)
}

// Reservation is an in-memory ReservationAuthority.
type Reservation struct {
	mu sync.Mutex

	allocations []model.HostAllocation
	hosts       map[string]*model.Host

	ListErr error
}

// NewReservation returns an empty Reservation.
func NewReservation() *Reservation {
	return &Reservation{hosts: map[string]*model.Host{}}
}

// AddHost registers a host for nodeID with the given reservations.
func (r *Reservation) AddHost(resourceID, nodeID string, reservations ...model.Reservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts[resourceID] = &model.Host{ID: resourceID, HypervisorHostname: nodeID}
	r.allocations = append(r.allocations, model.HostAllocation{ResourceID: resourceID, Reservations: reservations})
}

func (r *Reservation) ListHostAllocations(_ context.Context) ([]model.HostAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	return append([]model.HostAllocation(nil), r.allocations...), nil
}

func (r *Reservation) GetHost(_ context.Context, resourceID string) (*model.Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hosts[resourceID]
	if !ok {
		return nil, fmt.Errorf("host %s: %w", resourceID, ErrNotFound)
	}
	cp := *h
	return &cp, nil
}
