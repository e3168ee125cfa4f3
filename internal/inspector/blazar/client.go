// Package blazar implements the reservation authority on top of the
// OpenStack reservation REST API.
package blazar

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/pkg/rest"
	"github.com/hwfleet/hwfleet/pkg/log"
)

var _ core.ReservationAuthority = (*Client)(nil)

// Config configures a Client.
type Config struct {
	Endpoint        string
	Token           string
	Timeout         time.Duration
	MaxRetryElapsed time.Duration

	// QPS and Burst limit GetHost calls.
	QPS   float64
	Burst int
}

type reservation struct {
	ID        string `json:"id"`
	LeaseID   string `json:"lease_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type allocation struct {
	ResourceID   string        `json:"resource_id"`
	Reservations []reservation `json:"reservations"`
}

type allocationList struct {
	Allocations []allocation `json:"allocations"`
}

type hostResponse struct {
	Host struct {
		ID                 string `json:"id"`
		HypervisorHostname string `json:"hypervisor_hostname"`
	} `json:"host"`
}

// Client talks to the reservation API.
type Client struct {
	rest    *rest.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// New creates a Client.
func New(cfg Config, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	rc, err := rest.New(rest.Config{
		Endpoint:        cfg.Endpoint,
		Token:           cfg.Token,
		Timeout:         cfg.Timeout,
		MaxRetryElapsed: cfg.MaxRetryElapsed,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("blazar: %w", err)
	}

	limit := rate.Inf
	if cfg.QPS > 0 {
		limit = rate.Limit(cfg.QPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{rest: rc, limiter: rate.NewLimiter(limit, burst), logger: logger}, nil
}

func (c *Client) ListHostAllocations(ctx context.Context) ([]model.HostAllocation, error) {
	var resp allocationList
	if err := c.rest.Get(ctx, "/v1/os-hosts/allocations", &resp); err != nil {
		return nil, fmt.Errorf("list host allocations: %w", err)
	}

	out := make([]model.HostAllocation, 0, len(resp.Allocations))
	for _, a := range resp.Allocations {
		alloc := model.HostAllocation{ResourceID: a.ResourceID}
		for _, r := range a.Reservations {
			start, err := rest.ParseTime(r.StartDate)
			if err != nil {
				return nil, fmt.Errorf("allocation %s reservation %s start_date: %w", a.ResourceID, r.ID, err)
			}
			end, err := rest.ParseTime(r.EndDate)
			if err != nil {
				return nil, fmt.Errorf("allocation %s reservation %s end_date: %w", a.ResourceID, r.ID, err)
			}
			alloc.Reservations = append(alloc.Reservations, model.Reservation{
				ID:      r.ID,
				LeaseID: r.LeaseID,
				Start:   start,
				End:     end,
			})
		}
		out = append(out, alloc)
	}
	return out, nil
}

func (c *Client) GetHost(ctx context.Context, resourceID string) (*model.Host, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("get host %s: %w", resourceID, err)
	}

	var resp hostResponse
	if err := c.rest.Get(ctx, "/v1/os-hosts/"+url.PathEscape(resourceID), &resp); err != nil {
		return nil, fmt.Errorf("get host %s: %w", resourceID, err)
	}
	return &model.Host{ID: resp.Host.ID, HypervisorHostname: resp.Host.HypervisorHostname}, nil
}
