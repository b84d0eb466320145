package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestHTTPFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio bytes"))
	}))
	defer srv.Close()

	data, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "audio bytes" {
		t.Fatalf("data = %q", data)
	}
}

func TestHTTPFetcherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-200 source")
	}
}

func TestHTTPFetcherRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	if _, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for empty body")
	}
}

// countingCache counts Sweep calls for the eviction loop test.
type countingCache struct {
	memCache
	mu     sync.Mutex
	sweeps int
}

func (c *countingCache) Sweep(time.Duration, int64) {
	c.mu.Lock()
	c.sweeps++
	c.mu.Unlock()
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeps
}

func TestSweepCacheRunsImmediatelyAndOnTicks(t *testing.T) {
	cache := &countingCache{}
	uc := &SweepCache{
		Cache:    cache,
		TTL:      time.Hour,
		Interval: 10 * time.Millisecond,
		Logger:   testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		uc.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for cache.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d sweeps before deadline", cache.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
