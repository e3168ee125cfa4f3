package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, retry time.Duration) *Client {
	t.Helper()
	c, err := New(Config{
		Endpoint:             url,
		Token:                "secret",
		Headers:              map[string]string{"X-Test-Version": "1.2"},
		Timeout:              5 * time.Second,
		MaxRetryElapsed:      retry,
		RetryInitialInterval: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestClientSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Auth-Token"))
		assert.Equal(t, "1.2", r.Header.Get("X-Test-Version"))
		assert.Equal(t, "/v1/things", r.URL.Path)
		assert.Equal(t, "a,b", r.URL.Query().Get("fields"))
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "x"})
	}))
	defer srv.Close()

	var out struct{ Name string }
	err := newTestClient(t, srv.URL+"/", 0).Get(context.Background(), "/v1/things?fields=a,b", &out)

	require.NoError(t, err)
	assert.Equal(t, "x", out.Name)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 5*time.Second).Get(context.Background(), "/v1/x", &struct{}{})

	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "no such node", http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 5*time.Second).Get(context.Background(), "/v1/x", nil)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.EqualValues(t, 1, calls.Load())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Body, "no such node")
}

func TestClientWithoutRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 0).Get(context.Background(), "/v1/x", nil)

	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"nodes": [`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 5*time.Second).Get(context.Background(), "/v1/x", &struct{}{})

	assert.ErrorIs(t, err, ErrDecode)
}

func TestClientPutAndAbsoluteReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "inspect", body["target"])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, "http://unused.invalid", 0)
	err := c.Put(context.Background(), srv.URL+"/v1/nodes/a/states/provision", map[string]string{"target": "inspect"}, nil)

	assert.NoError(t, err)
}

func TestClientDoesNotRetryPutOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 5*time.Second).Put(context.Background(), "/v1/nodes/a/states/provision", map[string]string{"target": "inspect"}, nil)

	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientRetriesRateLimitedPut(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 5*time.Second).Put(context.Background(), "/v1/nodes/a/states/provision", map[string]string{"target": "inspect"}, nil)

	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New(Config{Endpoint: "localhost"}, nil)
	assert.Error(t, err)
}
