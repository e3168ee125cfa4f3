package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/hwfleet/hwfleet/internal/inspector/core/fake"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const leaseBuffer = 4 * time.Hour

func window(startOffset, length time.Duration) model.Reservation {
	return model.Reservation{ID: "r", LeaseID: "l", Start: now.Add(startOffset), End: now.Add(startOffset + length)}
}

func TestAnnotate(t *testing.T) {
	tests := []struct {
		name         string
		reservations []model.Reservation
		wantReserved bool
		wantNext     *time.Duration
		wantImminent bool
	}{
		{
			name: "no reservations",
		},
		{
			name:         "active reservation",
			reservations: []model.Reservation{window(-time.Hour, 2*time.Hour)},
			wantReserved: true,
		},
		{
			name:         "reservation boundaries are inclusive",
			reservations: []model.Reservation{window(0, time.Hour)},
			wantReserved: true,
		},
		{
			name:         "future reservation inside buffer",
			reservations: []model.Reservation{window(2*time.Hour, time.Hour)},
			wantNext:     ptr(2 * time.Hour),
			wantImminent: true,
		},
		{
			name:         "future reservation beyond buffer",
			reservations: []model.Reservation{window(48*time.Hour, time.Hour)},
			wantNext:     ptr(48 * time.Hour),
		},
		{
			name: "earliest future start wins and past windows are ignored",
			reservations: []model.Reservation{
				window(-48*time.Hour, time.Hour),
				window(72*time.Hour, time.Hour),
				window(10*time.Hour, time.Hour),
			},
			wantNext: ptr(10 * time.Hour),
		},
		{
			name:         "start exactly at buffer is imminent",
			reservations: []model.Reservation{window(leaseBuffer, time.Hour)},
			wantNext:     ptr(leaseBuffer),
			wantImminent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann := Annotate(model.HostAllocation{ResourceID: "1", Reservations: tt.reservations}, now, leaseBuffer)

			assert.Equal(t, tt.wantReserved, ann.Reserved)
			assert.Equal(t, tt.wantImminent, ann.LeaseImminent)
			if tt.wantNext == nil {
				assert.Nil(t, ann.NextReservationStart)
				return
			}
			require.NotNil(t, ann.NextReservationStart)
			assert.Equal(t, now.Add(*tt.wantNext), *ann.NextReservationStart)
		})
	}
}

func TestBuilderJoinsInventories(t *testing.T) {
	hw := fake.NewHardware(
		&model.NodeRecord{ID: "n-leased", Name: "leased", ProvisionState: model.ProvisionStateActive},
		&model.NodeRecord{ID: "n-soon", Name: "soon", ProvisionState: model.ProvisionStateAvailable},
		&model.NodeRecord{ID: "n-free", Name: "free", ProvisionState: model.ProvisionStateAvailable},
		&model.NodeRecord{ID: "n-unknown", Name: "unknown", ProvisionState: model.ProvisionStateManageable},
	)
	res := fake.NewReservation()
	res.AddHost("1", "n-leased", window(-time.Hour, 24*time.Hour))
	res.AddHost("2", "n-soon", window(2*time.Hour, time.Hour))
	res.AddHost("3", "n-free")

	b := NewBuilder(hw, res, clocktesting.NewFakePassiveClock(now), leaseBuffer, nil)
	nodes, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	got := map[string]model.ReservationAnnotation{}
	for _, n := range nodes {
		got[n.Node.ID] = n.Annotation
	}

	assert.True(t, got["n-leased"].Reserved)
	assert.False(t, got["n-soon"].Reserved)
	assert.True(t, got["n-soon"].LeaseImminent)
	assert.Equal(t, model.ReservationAnnotation{}, got["n-free"])
	assert.Equal(t, model.ReservationAnnotation{}, got["n-unknown"], "nodes without an allocation default to unreserved")
	assert.Equal(t, 1, hw.ListCalls())
}

func TestBuilderFailsWholePass(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("hardware", func(t *testing.T) {
		hw := fake.NewHardware(&model.NodeRecord{ID: "n1"})
		hw.ListErr = boom
		b := NewBuilder(hw, fake.NewReservation(), clocktesting.NewFakePassiveClock(now), leaseBuffer, nil)

		nodes, err := b.Build(context.Background())
		assert.Nil(t, nodes)
		assert.ErrorIs(t, err, ErrInventory)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("reservation", func(t *testing.T) {
		res := fake.NewReservation()
		res.ListErr = boom
		b := NewBuilder(fake.NewHardware(&model.NodeRecord{ID: "n1"}), res, clocktesting.NewFakePassiveClock(now), leaseBuffer, nil)

		_, err := b.Build(context.Background())
		assert.ErrorIs(t, err, ErrInventory)
	})

	t.Run("host lookup", func(t *testing.T) {
		res := fake.NewReservation()
		res.AddHost("1", "n1")
		b := NewBuilder(fake.NewHardware(&model.NodeRecord{ID: "n1"}), &missingHost{res}, clocktesting.NewFakePassiveClock(now), leaseBuffer, nil)

		_, err := b.Build(context.Background())
		assert.ErrorIs(t, err, ErrInventory)
		assert.ErrorIs(t, err, fake.ErrNotFound)
	})
}

func TestBuilderUsesLeaseBufferAsGiven(t *testing.T) {
	hw := fake.NewHardware(
		&model.NodeRecord{ID: "n-soon", Name: "soon", ProvisionState: model.ProvisionStateAvailable},
		&model.NodeRecord{ID: "n-now", Name: "now", ProvisionState: model.ProvisionStateAvailable},
	)
	res := fake.NewReservation()
	res.AddHost("1", "n-soon", window(2*time.Hour, time.Hour))
	res.AddHost("2", "n-now", window(0, time.Hour))

	nodes, err := NewBuilder(hw, res, clocktesting.NewFakePassiveClock(now), 0, nil).Build(context.Background())
	require.NoError(t, err)

	got := map[string]model.ReservationAnnotation{}
	for _, n := range nodes {
		got[n.Node.ID] = n.Annotation
	}
	assert.False(t, got["n-soon"].LeaseImminent, "a zero buffer only excludes active windows")
	require.NotNil(t, got["n-soon"].NextReservationStart)
	assert.True(t, got["n-now"].Reserved)
}

type missingHost struct {
	*fake.Reservation
}

func (m *missingHost) GetHost(_ context.Context, _ string) (*model.Host, error) {
	return nil, fake.ErrNotFound
}

func ptr(d time.Duration) *time.Duration { return &d }
