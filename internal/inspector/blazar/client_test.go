package blazar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwfleet/hwfleet/internal/pkg/rest"
)

const allocationsBody = `{
  "allocations": [
    {
      "resource_id": "1",
      "reservations": [
        {"id": "r1", "lease_id": "l1", "start_date": "2026-03-01T10:00:00.000000", "end_date": "2026-03-02T10:00:00.000000"},
        {"id": "r2", "lease_id": "l2", "start_date": "2026-03-05T00:00:00Z", "end_date": "2026-03-06T00:00:00Z"}
      ]
    },
    {"resource_id": "2", "reservations": []}
  ]
}`

func newTestServer(t *testing.T, allocations string) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/v1/os-hosts/allocations", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "tok", req.Header.Get("X-Auth-Token"))
		_, _ = w.Write([]byte(allocations))
	})
	r.HandleFunc("/v1/os-hosts/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		if id == "missing" {
			http.Error(w, `{"error_message": "not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"host": {"id": "` + id + `", "hypervisor_hostname": "node-` + id + `"}}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Config{Endpoint: url, Token: "tok", Timeout: 5 * time.Second, QPS: 100, Burst: 5}, nil)
	require.NoError(t, err)
	return c
}

func TestListHostAllocations(t *testing.T) {
	srv := newTestServer(t, allocationsBody)

	got, err := newTestClient(t, srv.URL).ListHostAllocations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "1", got[0].ResourceID)
	require.Len(t, got[0].Reservations, 2)
	r := got[0].Reservations[0]
	assert.Equal(t, "l1", r.LeaseID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), r.End)
	assert.Empty(t, got[1].Reservations)
}

func TestListHostAllocationsMalformedDate(t *testing.T) {
	srv := newTestServer(t, `{"allocations": [{"resource_id": "1", "reservations": [{"id": "r", "start_date": "soon", "end_date": "later"}]}]}`)

	_, err := newTestClient(t, srv.URL).ListHostAllocations(context.Background())
	assert.ErrorIs(t, err, rest.ErrDecode)
}

func TestGetHost(t *testing.T) {
	srv := newTestServer(t, allocationsBody)
	c := newTestClient(t, srv.URL)

	host, err := c.GetHost(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "node-7", host.HypervisorHostname)

	_, err = c.GetHost(context.Background(), "missing")
	assert.True(t, rest.IsNotFound(err))
}

func TestGetHostRespectsCanceledContext(t *testing.T) {
	srv := newTestServer(t, allocationsBody)
	c, err := New(Config{Endpoint: srv.URL, QPS: 0.001, Burst: 1}, nil)
	require.NoError(t, err)

	_, err = c.GetHost(context.Background(), "1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GetHost(ctx, "2")
	assert.Error(t, err)
}
