// Package httpds implements the HTTP datasource used to pull open data from
// the CBS OData API and the PDOK feature service. It wraps net/http with
// retry and exponential backoff, because both upstreams intermittently shed
// load with 5xx/429 during bulk pulls.
//
// Design goals:
//
//   - Tiny, explicit API (Get, GetJSON).
//   - Transient failures retried with exponential backoff; context honored
//     during requests and backoff waits.
//   - Easy to test: RoundTripper and the sleep function are injectable.
package httpds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Config configures the HTTP datasource client. Zero values get defaults:
// Timeout 60s, MaxRetries 3, InitialBackoff 200ms, MaxBackoff 5s.
type Config struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	MaxRetries int

	// InitialBackoff is the backoff before the first retry; each subsequent
	// retry doubles it up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff duration.
	MaxBackoff time.Duration

	// UserAgent is sent on every request when non-empty.
	UserAgent string

	// Transport is an optional custom RoundTripper, mainly for tests.
	Transport http.RoundTripper
}

// Client wraps an http.Client with retry and backoff behavior.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	userAgent      string

	// sleep is injectable to make tests fast and deterministic.
	sleep func(time.Duration)
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		userAgent:      cfg.UserAgent,
		sleep:          time.Sleep,
	}
}

// Get issues an HTTP GET with retry and backoff on transient errors. The
// returned response has a non-nil Body which the caller must close. Non-2xx
// final statuses are returned as errors.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			// Network or transport-level error: retryable.
			lastErr = err
		case isRetryableStatus(resp.StatusCode):
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("httpds: retryable status %d from GET %s", resp.StatusCode, url)
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("httpds: GET %s: status %s", url, resp.Status)
		default:
			return resp, nil
		}

		if attempt+1 >= attempts {
			return nil, lastErr
		}
		if err := sleepWithContext(ctx, c.sleep, backoffDuration(c.initialBackoff, attempt, c.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetJSON fetches url and decodes the JSON response body into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("httpds: decode %s: %w", url, err)
	}
	return nil
}

// isRetryableStatus reports whether the status should trigger a retry.
// Conservative: 5xx and 429 are transient, everything else is final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns the exponential backoff for the 0-based retry
// index, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleepWithContext waits d using the injected sleep, aborting early when ctx
// is canceled.
func sleepWithContext(ctx context.Context, sleep func(time.Duration), d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	go func() {
		sleep(d)
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
