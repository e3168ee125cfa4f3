package ironic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
)

// fakeIronic is a minimal bare metal API with an inspection state machine.
type fakeIronic struct {
	mu sync.Mutex

	nodes map[string]map[string]any
	// inspectPolls is how many GETs a node stays "inspecting".
	inspectPolls int
	failInspect  map[string]bool
	pending      map[string]int
	targets      []string
}

func newFakeIronic() *fakeIronic {
	return &fakeIronic{
		nodes:        map[string]map[string]any{},
		inspectPolls: 2,
		failInspect:  map[string]bool{},
		pending:      map[string]int{},
	}
}

func (f *fakeIronic) add(n map[string]any) {
	f.nodes[n["uuid"].(string)] = n
}

func (f *fakeIronic) handler(t *testing.T) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/v1/nodes", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "1.82", req.Header.Get("X-OpenStack-Ironic-API-Version"))
		assert.Equal(t, "tok", req.Header.Get("X-Auth-Token"))

		f.mu.Lock()
		defer f.mu.Unlock()

		ids := []string{"n1", "n2", "n3"}
		var page []map[string]any
		next := ""
		if req.URL.Query().Get("marker") == "" {
			assert.Contains(t, req.URL.Query().Get("fields"), "inspection_finished_at")
			for _, id := range ids[:2] {
				page = append(page, f.nodes[id])
			}
			next = "http://" + req.Host + "/v1/nodes?marker=n2"
		} else {
			page = append(page, f.nodes["n3"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"nodes": page, "next": next})
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/nodes/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := mux.Vars(req)["id"]
		n, ok := f.nodes[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if n["provision_state"] == "inspecting" {
			f.pending[id]--
			if f.pending[id] <= 0 {
				n["target_provision_state"] = nil
				if f.failInspect[id] {
					n["provision_state"] = "inspect failed"
					n["last_error"] = "ipmi timeout"
				} else {
					n["provision_state"] = "manageable"
					n["inspection_finished_at"] = "2026-03-01T12:00:00.000000"
				}
			}
		}
		_ = json.NewEncoder(w).Encode(n)
	}).Methods(http.MethodGet)

	r.HandleFunc("/v1/nodes/{id}/states/provision", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := mux.Vars(req)["id"]
		var body provisionRequest
		if !assert.NoError(t, json.NewDecoder(req.Body).Decode(&body)) {
			return
		}
		f.targets = append(f.targets, id+":"+body.Target)

		n := f.nodes[id]
		switch body.Target {
		case model.TargetManage:
			n["provision_state"] = "manageable"
		case model.TargetInspect:
			n["provision_state"] = "inspecting"
			n["target_provision_state"] = "manageable"
			f.pending[id] = f.inspectPolls
		case model.TargetProvide:
			n["provision_state"] = "available"
		}
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPut)

	return r
}

func newTestClient(t *testing.T, f *fakeIronic) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		Endpoint:     srv.URL,
		Token:        "tok",
		Microversion: "1.82",
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return c
}

func seed(f *fakeIronic) {
	f.add(map[string]any{
		"uuid": "n1", "name": "compute-1", "provision_state": "available", "power_state": "power off",
		"maintenance": false, "properties": map[string]any{"capabilities": "boot_mode:uefi,bios"},
		"inspection_finished_at": nil, "instance_uuid": nil,
	})
	f.add(map[string]any{
		"uuid": "n2", "name": "compute-2", "provision_state": "active", "maintenance": false,
		"properties": map[string]any{}, "inspection_finished_at": "2026-01-01T00:00:00+00:00", "instance_uuid": "abc",
	})
	f.add(map[string]any{
		"uuid": "n3", "name": "compute-3", "provision_state": "manageable", "maintenance": true,
		"properties": map[string]any{}, "inspection_finished_at": nil,
	})
}

func TestListNodesFollowsPagination(t *testing.T) {
	f := newFakeIronic()
	seed(f)
	c := newTestClient(t, f)

	nodes, err := c.ListNodes(context.Background(), []string{"uuid", "name", "inspection_finished_at"})
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	n1 := nodes[0]
	assert.Equal(t, "n1", n1.ID)
	assert.Equal(t, "compute-1", n1.Name)
	assert.Equal(t, model.ProvisionStateAvailable, n1.ProvisionState)
	assert.Nil(t, n1.LastInspectionFinishedAt)
	assert.Equal(t, map[string]string{"boot_mode": "uefi", "bios": ""}, n1.Capabilities)

	n2 := nodes[1]
	assert.Equal(t, "abc", n2.InstanceID)
	require.NotNil(t, n2.LastInspectionFinishedAt)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *n2.LastInspectionFinishedAt)

	assert.True(t, nodes[2].Maintenance)
}

func TestGetNodeNotFound(t *testing.T) {
	c := newTestClient(t, newFakeIronic())

	_, err := c.GetNode(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestStartInspectionFromAvailable(t *testing.T) {
	f := newFakeIronic()
	seed(f)
	c := newTestClient(t, f)

	got, err := c.StartInspection(context.Background(), "n1", 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, model.ProvisionStateAvailable, got.ProvisionState)
	require.NotNil(t, got.LastInspectionFinishedAt)
	assert.Equal(t, []string{"n1:manage", "n1:inspect", "n1:provide"}, f.targets)
}

func TestStartInspectionFromManageable(t *testing.T) {
	f := newFakeIronic()
	seed(f)
	c := newTestClient(t, f)

	got, err := c.StartInspection(context.Background(), "n3", 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, model.ProvisionStateManageable, got.ProvisionState)
	assert.Equal(t, []string{"n3:inspect"}, f.targets)
}

func TestStartInspectionFailure(t *testing.T) {
	f := newFakeIronic()
	seed(f)
	f.failInspect["n3"] = true
	c := newTestClient(t, f)

	_, err := c.StartInspection(context.Background(), "n3", 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInspectFailed)
	assert.Contains(t, err.Error(), "ipmi timeout")
}

func TestStartInspectionRefusesNodeAlreadyInspecting(t *testing.T) {
	for _, state := range []string{"inspecting", "inspect wait"} {
		t.Run(state, func(t *testing.T) {
			f := newFakeIronic()
			f.add(map[string]any{"uuid": "n4", "name": "compute-4", "provision_state": state, "target_provision_state": "manageable"})
			f.pending["n4"] = 100
			c := newTestClient(t, f)

			_, err := c.StartInspection(context.Background(), "n4", 5*time.Second)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInspectionInProgress)
			assert.Empty(t, f.targets)
		})
	}
}

func TestStartInspectionTimeout(t *testing.T) {
	f := newFakeIronic()
	seed(f)
	f.inspectPolls = 1 << 30
	c := newTestClient(t, f)

	_, err := c.StartInspection(context.Background(), "n3", 50*time.Millisecond)
	assert.Error(t, err)
}
