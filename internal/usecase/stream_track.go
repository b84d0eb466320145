package usecase

import (
	"context"
	"log/slog"
	"time"

	"audiocast/internal/domain"
)

type StreamTrack struct {
	Resolver Resolver
	Cache    ContentCache
	Encoder  Encoder
	Fetcher  Fetcher
	Metadata MetadataStore // optional
	History  HistoryStore  // optional
	Logger   *slog.Logger
}

type StreamInput struct {
	Ref  domain.TrackRef
	Hint string
	// HiRes asks origins for the hi-res source tier where they offer one.
	HiRes bool
	// AllowProxy lets the result be a proxyable upstream URL instead of
	// local bytes. The handler retries with it off when proxying fails
	// before headers.
	AllowProxy bool
}

type StreamOutput struct {
	// Data holds the playable bytes when the track was served locally.
	Data []byte
	MIME string
	// ProxyURL, when set, is a direct upstream URL the caller should relay
	// through the range proxy. Data is empty in that case.
	ProxyURL string
	Meta     domain.Metadata
	Provider string
}

// Execute serves one stream request: cache first, then resolve, then either
// hand back a proxyable URL or fetch, transcode and cache locally.
func (uc *StreamTrack) Execute(ctx context.Context, input StreamInput) (StreamOutput, error) {
	profile := domain.DefaultProfile()

	if data, err := uc.Cache.Read(input.Ref.Raw, profile.Key); err == nil {
		uc.Logger.Debug("serving stream from cache", slog.String("ref", input.Ref.Raw))
		// Cached plays count too; metadata comes from the store since no
		// origin was consulted.
		var meta domain.Metadata
		if uc.Metadata != nil {
			meta, _ = uc.Metadata.Get(ctx, input.Ref.Raw)
		}
		uc.recordPlay(ctx, input.Ref.Raw, "cache", meta)
		return StreamOutput{Data: data, MIME: profile.MIME, Meta: meta}, nil
	}

	quality := domain.QualityLossless
	if input.HiRes {
		quality = domain.QualityHiRes
	}
	locator, meta, err := uc.Resolver.Resolve(ctx, input.Ref, input.Hint, quality)
	if err != nil {
		return StreamOutput{}, err
	}
	uc.persistMeta(ctx, input.Ref.Raw, meta)

	if locator.Direct && input.AllowProxy {
		uc.recordPlay(ctx, input.Ref.Raw, locator.Provider, meta)
		return StreamOutput{ProxyURL: locator.URL, Meta: meta, Provider: locator.Provider}, nil
	}

	var data []byte
	if locator.Direct {
		// Extracted stream URL: let the encoder pull it directly.
		data, err = uc.Encoder.EncodeURL(ctx, locator.URL, profile)
		if err != nil {
			return StreamOutput{}, wrapEncode(err)
		}
	} else {
		src, err := uc.Fetcher.Fetch(ctx, locator.URL)
		if err != nil {
			return StreamOutput{}, wrapFetch(err)
		}
		data, err = uc.Encoder.Encode(ctx, src, locator.SourceFormat, profile)
		if err != nil {
			return StreamOutput{}, wrapEncode(err)
		}
	}

	if err := uc.Cache.Write(input.Ref.Raw, profile.Key, data); err != nil {
		// Cache failures never fail the stream.
		uc.Logger.Warn("stream served but not cached", slog.String("ref", input.Ref.Raw))
	}
	uc.recordPlay(ctx, input.Ref.Raw, locator.Provider, meta)
	return StreamOutput{Data: data, MIME: profile.MIME, Meta: meta, Provider: locator.Provider}, nil
}

func (uc *StreamTrack) persistMeta(ctx context.Context, trackID string, meta domain.Metadata) {
	if uc.Metadata == nil || meta.Title == "" {
		return
	}
	if err := uc.Metadata.Upsert(ctx, trackID, meta); err != nil {
		uc.Logger.Debug("metadata upsert failed", slog.String("error", err.Error()))
	}
}

func (uc *StreamTrack) recordPlay(ctx context.Context, trackID, provider string, meta domain.Metadata) {
	if uc.History == nil {
		return
	}
	ev := domain.PlayEvent{
		TrackID:  trackID,
		Title:    meta.Title,
		Artist:   meta.Artist(),
		Provider: provider,
		HiRes:    meta.HiRes,
		PlayedAt: time.Now(),
	}
	if err := uc.History.Record(ctx, ev); err != nil {
		uc.Logger.Debug("play history record failed", slog.String("error", err.Error()))
	}
}
