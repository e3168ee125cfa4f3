// Package rest is a small JSON-over-HTTP client for token authenticated
// OpenStack style APIs, with exponential backoff on transient failures.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hwfleet/hwfleet/pkg/log"
)

// ErrDecode is returned when a response body is not the expected JSON.
var ErrDecode = errors.New("malformed response")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	// Endpoint is the API root all relative paths are resolved against.
	Endpoint string
	// Token is sent as X-Auth-Token when not empty.
	Token string
	// Headers are added to every request.
	Headers map[string]string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxRetryElapsed bounds the total time spent retrying. Zero disables retries.
	MaxRetryElapsed time.Duration
	// RetryInitialInterval is the first backoff delay; defaults to 500ms.
	RetryInitialInterval time.Duration
}

// Client performs JSON requests against one API endpoint.
type Client struct {
	base    *url.URL
	token   string
	headers map[string]string
	http    *http.Client

	maxRetryElapsed time.Duration
	initialInterval time.Duration

	logger log.Logger
}

// New creates a Client for cfg.Endpoint.
func New(cfg Config, logger log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme and host are required", cfg.Endpoint)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	initial := cfg.RetryInitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}

	return &Client{
		base:            base,
		token:           cfg.Token,
		headers:         cfg.Headers,
		http:            &http.Client{Timeout: cfg.Timeout},
		maxRetryElapsed: cfg.MaxRetryElapsed,
		initialInterval: initial,
		logger:          logger,
	}, nil
}

// Get decodes the JSON response of GET ref into out.
func (c *Client) Get(ctx context.Context, ref string, out any) error {
	return c.Do(ctx, http.MethodGet, ref, nil, out)
}

// Put sends body as JSON and decodes the response into out when out is not nil.
func (c *Client) Put(ctx context.Context, ref string, body, out any) error {
	return c.Do(ctx, http.MethodPut, ref, body, out)
}

// Do performs one logical request. GET and HEAD are retried on transport
// errors, 429 and 5xx responses. Other methods may have been applied when the
// response is lost, so they are only retried on 429. ref is either a path
// relative to the endpoint or an absolute URL.
func (c *Client) Do(ctx context.Context, method, ref string, body, out any) error {
	target, err := c.resolve(ref)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.maxRetryElapsed > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = c.initialInterval
		exp.MaxElapsedTime = c.maxRetryElapsed
		policy = exp
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.once(ctx, method, target, payload, out)
		if err == nil {
			return nil
		}
		if !retryable(ctx, method, err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("Request failed, will retry", "method", method, "url", target, "attempt", attempt, "error", err.Error())
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func (c *Client) once(ctx context.Context, method, target string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w from %s %s: %w", ErrDecode, method, target, err)
	}
	return nil
}

func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}

	resolved := *c.base
	resolved.Path = c.base.Path + "/" + strings.TrimLeft(u.Path, "/")
	resolved.RawQuery = u.RawQuery
	return resolved.String(), nil
}

func retryable(ctx context.Context, method string, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrDecode) {
		return false
	}
	var se *StatusError
	isStatus := errors.As(err, &se)
	if isStatus && se.Code == http.StatusTooManyRequests {
		return true
	}
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	if isStatus {
		return se.Code >= 500
	}
	return true
}
