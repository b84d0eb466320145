// Package mirror tracks the interchangeable API endpoints serving each
// origin provider and decides the order in which they are tried.
package mirror

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"audiocast/internal/metrics"
)

// Selector holds per-provider endpoint lists with last-known-good affinity.
// It is an explicit, injectable value so tests and multi-instance deployments
// never share hidden state.
type Selector struct {
	client *http.Client
	logger *slog.Logger

	mu        sync.Mutex
	endpoints map[string][]string
	lastGood  map[string]string
	refreshed map[string]bool
}

func NewSelector(static map[string][]string, logger *slog.Logger) *Selector {
	endpoints := make(map[string][]string, len(static))
	for provider, list := range static {
		endpoints[provider] = append([]string(nil), list...)
	}
	return &Selector{
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
		endpoints: endpoints,
		lastGood:  make(map[string]string),
		refreshed: make(map[string]bool),
	}
}

// Candidates returns the endpoint iteration order for one resolve call:
// the last globally-successful endpoint first, then the remaining endpoints
// in their configured priority order. The returned slice is a copy.
func (s *Selector) Candidates(provider string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.endpoints[provider]
	out := make([]string, 0, len(list))
	if good := s.lastGood[provider]; good != "" {
		for _, e := range list {
			if e == good {
				out = append(out, good)
				break
			}
		}
	}
	for _, e := range list {
		if len(out) > 0 && e == out[0] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// MarkGood records the endpoint that last produced a successful response so
// the next resolve call for the same provider tries it first.
func (s *Selector) MarkGood(provider, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastGood[provider] = endpoint
}

// RefreshOnce ingests the provider's health feed at most once per process
// session. Subsequent calls are no-ops until ForceRefresh is used.
func (s *Selector) RefreshOnce(ctx context.Context, provider, feedURL string) {
	s.mu.Lock()
	done := s.refreshed[provider]
	s.refreshed[provider] = true
	s.mu.Unlock()
	if done || feedURL == "" {
		return
	}
	if err := s.refresh(ctx, provider, feedURL); err != nil {
		metrics.MirrorRefreshes.WithLabelValues(provider, "error").Inc()
		s.logger.Warn("mirror feed refresh failed, keeping previous list",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.MirrorRefreshes.WithLabelValues(provider, "ok").Inc()
}

// ForceRefresh re-ingests the health feed regardless of the once-per-session
// guard.
func (s *Selector) ForceRefresh(ctx context.Context, provider, feedURL string) error {
	s.mu.Lock()
	s.refreshed[provider] = true
	s.mu.Unlock()
	return s.refresh(ctx, provider, feedURL)
}

// refresh streams the health feed (one endpoint URL per line, comments with
// '#') and replaces the provider's endpoint list. The previous list is kept
// on any failure or an empty feed.
func (s *Selector) refresh(ctx context.Context, provider, feedURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health feed returned %d", resp.StatusCode)
	}

	var fresh []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			continue
		}
		fresh = append(fresh, strings.TrimRight(line, "/"))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(fresh) == 0 {
		return fmt.Errorf("health feed yielded no endpoints")
	}

	s.mu.Lock()
	s.endpoints[provider] = fresh
	s.mu.Unlock()

	s.logger.Info("mirror list refreshed",
		slog.String("provider", provider),
		slog.Int("endpoints", len(fresh)),
	)
	return nil
}
