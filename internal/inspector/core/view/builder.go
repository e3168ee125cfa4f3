package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/pkg/log"
)

// NodeFields is the projection requested from the hardware authority.
var NodeFields = []string{
	"uuid",
	"name",
	"provision_state",
	"power_state",
	"maintenance",
	"properties",
	"inspection_finished_at",
	"instance_uuid",
}

// ErrInventory wraps any failure to read either inventory.
var ErrInventory = errors.New("inventory fetch failed")

// Builder joins the hardware and reservation inventories into one snapshot.
type Builder struct {
	hardware    core.HardwareAuthority
	reservation core.ReservationAuthority
	clock       clock.PassiveClock
	leaseBuffer time.Duration
	logger      log.Logger
}

// NewBuilder creates a Builder. leaseBuffer is the window before a lease start
// during which a node is not touched; it is used as given, so zero only excludes
// a node whose next lease starts now.
func NewBuilder(hw core.HardwareAuthority, res core.ReservationAuthority, clk clock.PassiveClock, leaseBuffer time.Duration, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Builder{
		hardware:    hw,
		reservation: res,
		clock:       clk,
		leaseBuffer: leaseBuffer,
		logger:      logger,
	}
}

// Build reads both inventories once and returns every node with its annotation.
// Either read failing fails the whole build.
func (b *Builder) Build(ctx context.Context) ([]model.AnnotatedNode, error) {
	nodes, err := b.hardware.ListNodes(ctx, NodeFields)
	if err != nil {
		return nil, fmt.Errorf("%w: list nodes: %w", ErrInventory, err)
	}

	allocations, err := b.reservation.ListHostAllocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list host allocations: %w", ErrInventory, err)
	}

	now := b.clock.Now()
	byHostname := make(map[string]model.ReservationAnnotation, len(allocations))
	for _, alloc := range allocations {
		host, err := b.reservation.GetHost(ctx, alloc.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("%w: get host %s: %w", ErrInventory, alloc.ResourceID, err)
		}

		ann := Annotate(alloc, now, b.leaseBuffer)
		if ann.LeaseImminent {
			b.logger.Info("next reservation starts within the lease buffer, excluding host from this pass",
				"resourceID", alloc.ResourceID,
				"hostname", host.HypervisorHostname,
				"startsIn", ann.NextReservationStart.Sub(now))
		}
		byHostname[host.HypervisorHostname] = ann
	}

	view := make([]model.AnnotatedNode, 0, len(nodes))
	for _, n := range nodes {
		// absent from the allocation list means unreserved
		view = append(view, model.AnnotatedNode{Node: n, Annotation: byHostname[n.ID]})
	}

	b.logger.Info("built node view", "nodes", len(view), "allocations", len(allocations))
	return view, nil
}

// Annotate derives the reservation annotation of one allocation at time now.
func Annotate(alloc model.HostAllocation, now time.Time, buffer time.Duration) model.ReservationAnnotation {
	var next *time.Time
	for i := range alloc.Reservations {
		res := alloc.Reservations[i]
		if res.Contains(now) {
			return model.ReservationAnnotation{Reserved: true}
		}
		if res.Start.After(now) && (next == nil || res.Start.Before(*next)) {
			start := res.Start
			next = &start
		}
	}

	ann := model.ReservationAnnotation{NextReservationStart: next}
	if next != nil && next.Sub(now) <= buffer {
		ann.LeaseImminent = true
	}
	return ann
}
