package usecase

import (
	"context"
	"time"

	"audiocast/internal/domain"
)

// Resolver finds a playable source for a parsed track reference.
type Resolver interface {
	Resolve(ctx context.Context, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error)
}

// ContentCache is the disk cache keyed by (track reference, format).
type ContentCache interface {
	Read(trackID, format string) ([]byte, error)
	Write(trackID, format string, data []byte) error
	Sweep(ttl time.Duration, maxTotalBytes int64)
}

// Encoder converts source audio into an output profile.
type Encoder interface {
	Encode(ctx context.Context, src []byte, srcHint string, profile domain.Profile) ([]byte, error)
	EncodeURL(ctx context.Context, srcURL string, profile domain.Profile) ([]byte, error)
}

// Fetcher downloads a resolved locator URL into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Tagger embeds metadata into downloaded audio, best-effort.
type Tagger interface {
	Embed(ctx context.Context, data []byte, ext string, meta domain.Metadata) []byte
}

// MetadataStore persists resolved metadata per track reference. Optional.
type MetadataStore interface {
	Upsert(ctx context.Context, trackID string, meta domain.Metadata) error
	Get(ctx context.Context, trackID string) (domain.Metadata, error)
}

// HistoryStore records successful stream deliveries. Optional.
type HistoryStore interface {
	Record(ctx context.Context, ev domain.PlayEvent) error
}
