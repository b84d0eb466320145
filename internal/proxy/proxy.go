// Package proxy relays a resolved upstream audio URL to the client with
// byte-range support, so seeking never requires buffering the whole file.
package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"audiocast/internal/metrics"
)

type Proxy struct {
	client *http.Client
	logger *slog.Logger
}

func New(logger *slog.Logger) *Proxy {
	return &Proxy{
		// No overall timeout: long tracks stream for minutes. The request
		// context still cancels the upstream transfer on client disconnect.
		client: &http.Client{Timeout: 0},
		logger: logger,
	}
}

// Do relays upstreamURL to the client. The client's Range header is
// forwarded verbatim and the upstream's status, Content-Range,
// Content-Length and Content-Type come back unmodified, so the origin stays
// the single authority on range semantics.
//
// Errors before the response headers are written are returned to the caller,
// which can still fall back to the local fetch-and-transcode path. Once
// headers are out the response is committed: mid-stream failures are logged
// and the connection is dropped.
func (p *Proxy) Do(w http.ResponseWriter, r *http.Request, upstreamURL string) error {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		metrics.ProxyFallbacks.Inc()
		return err
	}
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.ProxyFallbacks.Inc()
		return fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		metrics.ProxyFallbacks.Inc()
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	metrics.ProxySessions.Inc()
	for _, h := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(resp.StatusCode)

	start := time.Now()
	written, err := io.Copy(w, resp.Body)
	if err != nil {
		// Headers are committed; nothing to fall back to. Client
		// disconnects land here as context cancellation.
		p.logger.Debug("proxy stream ended early",
			slog.Int64("bytes", written),
			slog.Duration("took", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	p.logger.Info("proxied stream",
		slog.Int64("bytes", written),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}
