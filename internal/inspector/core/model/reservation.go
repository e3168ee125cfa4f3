package model

import "time"

// Reservation is one lease window on a host allocation.
type Reservation struct {
	ID      string
	LeaseID string
	Start   time.Time
	End     time.Time
}

// Contains reports whether t falls inside the closed interval [Start, End].
func (r Reservation) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// HostAllocation lists the reservations held against one reservable host.
type HostAllocation struct {
	ResourceID   string
	Reservations []Reservation
}

// Host is the reservation authority's view of a host.
type Host struct {
	ID                 string
	HypervisorHostname string
}

// ReservationAnnotation is derived per pass and attached to a node.
type ReservationAnnotation struct {
	// Reserved is true while a reservation window contains the pass time.
	Reserved bool

	// NextReservationStart is the earliest future start when the host is between leases.
	NextReservationStart *time.Time

	// LeaseImminent is set when NextReservationStart falls within the safety buffer.
	LeaseImminent bool
}

// AnnotatedNode pairs a node snapshot with its reservation annotation.
type AnnotatedNode struct {
	Node       *NodeRecord
	Annotation ReservationAnnotation
}
