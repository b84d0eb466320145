// Package resolver turns a parsed track reference into a playable stream
// locator by trying origin providers in a fixed priority order.
package resolver

import (
	"context"
	"errors"
	"log/slog"

	"audiocast/internal/domain"
	"audiocast/internal/metrics"
)

// Origin is one provider's resolve capability. A provider that cannot serve
// the given reference returns domain.ErrNotFound; any other error is equally
// treated as a soft failure that advances to the next candidate.
type Origin interface {
	Name() string
	Resolve(ctx context.Context, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error)
}

type Resolver struct {
	// link handles foreign-URL references and short-circuits the provider
	// chain entirely.
	link    Origin
	origins []Origin
	logger  *slog.Logger
}

// New builds a Resolver. origins are tried in the order given; link may be
// nil when URL imports are disabled.
func New(logger *slog.Logger, link Origin, origins ...Origin) *Resolver {
	return &Resolver{link: link, origins: origins, logger: logger}
}

// Resolve tries each origin until one yields a locator. Per-provider
// timeouts, non-200 responses and malformed payloads are all soft failures;
// only exhausting every candidate is reported, as domain.ErrOriginExhausted.
func (r *Resolver) Resolve(ctx context.Context, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error) {
	if ref.Kind == domain.KindURL {
		if r.link == nil {
			return domain.StreamLocator{}, domain.Metadata{}, domain.ErrOriginExhausted
		}
		loc, meta, err := r.attempt(ctx, r.link, ref, hint, quality)
		if err != nil {
			metrics.ResolveExhausted.Inc()
			return domain.StreamLocator{}, domain.Metadata{}, domain.ErrOriginExhausted
		}
		return loc, meta, nil
	}

	for _, origin := range r.origins {
		if ctx.Err() != nil {
			return domain.StreamLocator{}, domain.Metadata{}, ctx.Err()
		}
		loc, meta, err := r.attempt(ctx, origin, ref, hint, quality)
		if err != nil {
			continue
		}
		return loc, meta, nil
	}

	metrics.ResolveExhausted.Inc()
	return domain.StreamLocator{}, domain.Metadata{}, domain.ErrOriginExhausted
}

func (r *Resolver) attempt(ctx context.Context, origin Origin, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error) {
	loc, meta, err := origin.Resolve(ctx, ref, hint, quality)
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrNotFound) {
			outcome = "miss"
		}
		metrics.ResolveAttempts.WithLabelValues(origin.Name(), outcome).Inc()
		r.logger.Debug("origin attempt failed",
			slog.String("provider", origin.Name()),
			slog.String("ref", ref.Raw),
			slog.String("error", err.Error()),
		)
		return domain.StreamLocator{}, domain.Metadata{}, err
	}
	metrics.ResolveAttempts.WithLabelValues(origin.Name(), "ok").Inc()
	loc.Provider = origin.Name()
	r.logger.Info("resolved track",
		slog.String("provider", origin.Name()),
		slog.String("ref", ref.Raw),
		slog.Bool("direct", loc.Direct),
	)
	return loc, meta, nil
}
