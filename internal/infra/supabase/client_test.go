package supabase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/infra/resilience"
	"github.com/wanderplan/wanderplan-go/internal/infra/supabase"

	"go.uber.org/zap"
)

func newTestClient(serverURL string, maxRetries int) *supabase.Client {
	cfg := resilience.Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 5,
	}
	return supabase.NewClient(
		&http.Client{Timeout: time.Second},
		serverURL,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker("supabase-client-test"),
		cfg,
		zap.NewNop(),
	)
}

func TestReadRetriesTransientFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	cities, err := client.ListCities(context.Background())
	if err != nil {
		t.Fatalf("expected read to recover after retries, got %v", err)
	}
	if cities == nil {
		t.Fatal("expected non-nil empty result")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts (2 failures + 1 success), got %d", got)
	}
}

func TestReadDoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad filter"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	if _, err := client.ListCities(context.Background()); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected a single attempt for a permanent error, got %d", got)
	}
}

func TestReadTripsCircuitBreaker(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	for i := 0; i < 5; i++ {
		if _, err := client.ListCities(context.Background()); err == nil {
			t.Fatal("expected failure while server is down")
		}
	}

	// The breaker is open now; further reads fail without hitting the server.
	before := atomic.LoadInt32(&attempts)
	if _, err := client.ListCities(context.Background()); err == nil {
		t.Fatal("expected failure from open breaker")
	}
	if got := atomic.LoadInt32(&attempts); got != before {
		t.Errorf("expected no new attempts with the breaker open, got %d extra", got-before)
	}
}
