// Package ironic implements the hardware authority on top of the OpenStack
// bare metal REST API.
package ironic

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/pkg/rest"
	"github.com/hwfleet/hwfleet/pkg/log"
)

var (
	// ErrInspectFailed is returned when a node ends its inspection in "inspect failed".
	ErrInspectFailed = errors.New("inspection failed")

	// ErrInspectionInProgress is returned when the node is already being inspected.
	ErrInspectionInProgress = errors.New("inspection already in progress")
)

var _ core.HardwareAuthority = (*Client)(nil)

// Config configures a Client.
type Config struct {
	Endpoint        string
	Token           string
	Microversion    string
	Timeout         time.Duration
	PollInterval    time.Duration
	MaxRetryElapsed time.Duration
}

// Client talks to the bare metal API.
type Client struct {
	rest         *rest.Client
	pollInterval time.Duration
	logger       log.Logger
}

// New creates a Client.
func New(cfg Config, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	headers := map[string]string{}
	if cfg.Microversion != "" {
		headers["X-OpenStack-Ironic-API-Version"] = cfg.Microversion
	}

	rc, err := rest.New(rest.Config{
		Endpoint:        cfg.Endpoint,
		Token:           cfg.Token,
		Headers:         headers,
		Timeout:         cfg.Timeout,
		MaxRetryElapsed: cfg.MaxRetryElapsed,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("ironic: %w", err)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 10 * time.Second
	}
	return &Client{rest: rc, pollInterval: poll, logger: logger}, nil
}

// ListNodes returns every node, following pagination links.
func (c *Client) ListNodes(ctx context.Context, fields []string) ([]*model.NodeRecord, error) {
	ref := "/v1/nodes"
	if len(fields) > 0 {
		ref += "?" + url.Values{"fields": []string{strings.Join(fields, ",")}}.Encode()
	}

	var records []*model.NodeRecord
	for ref != "" {
		var page nodeList
		if err := c.rest.Get(ctx, ref, &page); err != nil {
			return nil, fmt.Errorf("list nodes: %w", err)
		}
		for i := range page.Nodes {
			rec, err := page.Nodes[i].toRecord()
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		ref = page.Next
	}
	return records, nil
}

func (c *Client) GetNode(ctx context.Context, id string) (*model.NodeRecord, error) {
	n, err := c.getNode(ctx, id)
	if err != nil {
		return nil, err
	}
	return n.toRecord()
}

func (c *Client) getNode(ctx context.Context, id string) (*node, error) {
	var n node
	if err := c.rest.Get(ctx, "/v1/nodes/"+url.PathEscape(id), &n); err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	return &n, nil
}

func (c *Client) SetProvisionState(ctx context.Context, id string, target string) error {
	ref := "/v1/nodes/" + url.PathEscape(id) + "/states/provision"
	if err := c.rest.Put(ctx, ref, provisionRequest{Target: target}, nil); err != nil {
		return fmt.Errorf("set node %s provision state %s: %w", id, target, err)
	}
	return nil
}

// StartInspection inspects the node and waits for the result. A node that is
// available is moved to manageable first and provided back once inspected.
func (c *Client) StartInspection(ctx context.Context, id string, timeout time.Duration) (*model.NodeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := c.logger.WithValues("node", id)

	current, err := c.getNode(ctx, id)
	if err != nil {
		return nil, err
	}
	state := model.ProvisionState(current.ProvisionState)
	if state.IsInspecting() {
		return nil, fmt.Errorf("node %s in %q: %w", id, state, ErrInspectionInProgress)
	}
	wasAvailable := state == model.ProvisionStateAvailable

	if wasAvailable {
		logger.Debug("Moving node to manageable before inspection")
		if err := c.SetProvisionState(ctx, id, model.TargetManage); err != nil {
			return nil, err
		}
		if _, err := c.waitFor(ctx, id, model.ProvisionStateManageable); err != nil {
			return nil, err
		}
	}

	if err := c.SetProvisionState(ctx, id, model.TargetInspect); err != nil {
		return nil, err
	}
	inspected, err := c.waitFor(ctx, id, model.ProvisionStateManageable)
	if err != nil {
		return nil, err
	}

	if !wasAvailable {
		return inspected.toRecord()
	}

	logger.Debug("Providing node back to available after inspection")
	if err := c.SetProvisionState(ctx, id, model.TargetProvide); err != nil {
		return nil, err
	}
	provided, err := c.waitFor(ctx, id, model.ProvisionStateAvailable)
	if err != nil {
		return nil, err
	}
	return provided.toRecord()
}

// waitFor polls the node until it rests in want with no transition pending.
// Landing in "inspect failed" or "error" ends the wait with an error.
func (c *Client) waitFor(ctx context.Context, id string, want model.ProvisionState) (*node, error) {
	var last *node
	err := wait.PollUntilContextCancel(ctx, c.pollInterval, true, func(ctx context.Context) (bool, error) {
		n, err := c.getNode(ctx, id)
		if err != nil {
			return false, err
		}
		last = n

		state := model.ProvisionState(n.ProvisionState)
		switch state {
		case want:
			return deref(n.TargetProvisionState) == "", nil
		case model.ProvisionStateInspectFailed:
			return false, fmt.Errorf("node %s: %w: %s", id, ErrInspectFailed, deref(n.LastError))
		case model.ProvisionStateError:
			return false, fmt.Errorf("node %s entered error state: %s", id, deref(n.LastError))
		}
		if state.IsInspecting() {
			c.logger.Debug("Inspection in progress", "node", id, "state", string(state))
		}
		return false, nil
	})
	if err != nil {
		state := ""
		if last != nil {
			state = last.ProvisionState
		}
		return nil, fmt.Errorf("waiting for node %s to become %s (last state %q): %w", id, want, state, err)
	}
	return last, nil
}
