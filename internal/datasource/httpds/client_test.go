package httpds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{})
	if c.httpClient.Timeout <= 0 {
		t.Fatalf("expected non-zero timeout, got %v", c.httpClient.Timeout)
	}
	if c.initialBackoff <= 0 || c.maxBackoff <= 0 {
		t.Fatalf("expected backoff defaults, got %v/%v", c.initialBackoff, c.maxBackoff)
	}
}

func TestGetSuccessNoRetry(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 3, Timeout: 2 * time.Second})
	c.sleep = func(time.Duration) {}

	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d, want exactly 1", got)
	}
}

func TestGetRetriesOn5xxThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 3, Timeout: 2 * time.Second,
		InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	c.sleep = func(time.Duration) {}

	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get after retries: %v", err)
	}
	resp.Body.Close()
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3 (two failures + success)", got)
	}
}

func TestGetDoesNotRetryOn404(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 3, Timeout: 2 * time.Second})
	c.sleep = func(time.Duration) {}

	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d, want 1 (no retry on client error)", got)
	}
}

func TestGetExhaustsRetries(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 2, Timeout: 2 * time.Second,
		InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	c.sleep = func(time.Duration) {}

	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3 (initial + 2 retries)", got)
	}
}

func TestGetJSONDecodes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[{"RegioS":"Amsterdam"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Timeout: 2 * time.Second})
	var got struct {
		Value []map[string]any `json:"value"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(got.Value) != 1 || got.Value[0]["RegioS"] != "Amsterdam" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestBackoffDurationClamps(t *testing.T) {
	t.Parallel()

	max := 50 * time.Millisecond
	if d := backoffDuration(10*time.Millisecond, 0, max); d != 10*time.Millisecond {
		t.Errorf("attempt 0 = %v", d)
	}
	if d := backoffDuration(10*time.Millisecond, 1, max); d != 20*time.Millisecond {
		t.Errorf("attempt 1 = %v", d)
	}
	if d := backoffDuration(10*time.Millisecond, 10, max); d != max {
		t.Errorf("attempt 10 = %v, want clamp to %v", d, max)
	}
}
