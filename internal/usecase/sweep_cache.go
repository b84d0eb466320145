package usecase

import (
	"context"
	"log/slog"
	"time"
)

// SweepCache runs the cache eviction loop: once at startup, then on a fixed
// interval until the context is cancelled.
type SweepCache struct {
	Cache         ContentCache
	TTL           time.Duration
	MaxTotalBytes int64
	Interval      time.Duration
	Logger        *slog.Logger
}

func (uc *SweepCache) Run(ctx context.Context) {
	interval := uc.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	uc.Cache.Sweep(uc.TTL, uc.MaxTotalBytes)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			uc.Logger.Debug("cache sweep loop stopped")
			return
		case <-ticker.C:
			uc.Cache.Sweep(uc.TTL, uc.MaxTotalBytes)
		}
	}
}
