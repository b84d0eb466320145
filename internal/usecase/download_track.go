package usecase

import (
	"context"
	"log/slog"
	"strings"

	"audiocast/internal/domain"
)

type DownloadTrack struct {
	Resolver Resolver
	Cache    ContentCache
	Encoder  Encoder
	Fetcher  Fetcher
	Tagger   Tagger        // optional
	Metadata MetadataStore // optional
	Logger   *slog.Logger
}

type DownloadInput struct {
	Ref    domain.TrackRef
	Hint   string
	Format string
	// Filename overrides the derived attachment name, extension excluded.
	Filename string
}

type DownloadOutput struct {
	Data     []byte
	Filename string
	MIME     string
}

// Execute produces a tagged download in the requested format. Unknown
// formats fall back to the default profile rather than failing.
func (uc *DownloadTrack) Execute(ctx context.Context, input DownloadInput) (DownloadOutput, error) {
	profile, known := domain.ParseProfile(input.Format)
	if !known && input.Format != "" {
		uc.Logger.Debug("unknown download format, using default",
			slog.String("format", input.Format),
		)
	}

	if data, err := uc.Cache.Read(input.Ref.Raw, profile.Key); err == nil {
		// Cache entries are untagged; recover metadata for the tag pass.
		var meta domain.Metadata
		if uc.Metadata != nil {
			meta, _ = uc.Metadata.Get(ctx, input.Ref.Raw)
		}
		return uc.finish(ctx, input, profile, data, meta), nil
	}

	locator, meta, err := uc.Resolver.Resolve(ctx, input.Ref, input.Hint, domain.QualityLossless)
	if err != nil {
		return DownloadOutput{}, err
	}
	if uc.Metadata != nil && meta.Title != "" {
		if err := uc.Metadata.Upsert(ctx, input.Ref.Raw, meta); err != nil {
			uc.Logger.Debug("metadata upsert failed", slog.String("error", err.Error()))
		}
	}

	var data []byte
	if locator.Direct {
		data, err = uc.Encoder.EncodeURL(ctx, locator.URL, profile)
		if err != nil {
			return DownloadOutput{}, wrapEncode(err)
		}
	} else {
		src, err := uc.Fetcher.Fetch(ctx, locator.URL)
		if err != nil {
			return DownloadOutput{}, wrapFetch(err)
		}
		data, err = uc.Encoder.Encode(ctx, src, locator.SourceFormat, profile)
		if err != nil {
			return DownloadOutput{}, wrapEncode(err)
		}
	}

	// Cache the untagged bytes; tags are cheap to re-embed per download
	// and personalized filenames never leak into shared cache entries.
	if err := uc.Cache.Write(input.Ref.Raw, profile.Key, data); err != nil {
		uc.Logger.Warn("download served but not cached", slog.String("ref", input.Ref.Raw))
	}
	return uc.finish(ctx, input, profile, data, meta), nil
}

func (uc *DownloadTrack) finish(ctx context.Context, input DownloadInput, profile domain.Profile, data []byte, meta domain.Metadata) DownloadOutput {
	if uc.Tagger != nil {
		data = uc.Tagger.Embed(ctx, data, profile.Ext, meta)
	}
	return DownloadOutput{
		Data:     data,
		Filename: downloadFilename(input, profile, meta),
		MIME:     profile.MIME,
	}
}

func downloadFilename(input DownloadInput, profile domain.Profile, meta domain.Metadata) string {
	name := strings.TrimSpace(input.Filename)
	if name == "" && meta.Title != "" {
		if artist := meta.Artist(); artist != "" {
			name = artist + " - " + meta.Title
		} else {
			name = meta.Title
		}
	}
	if name == "" {
		name = input.Ref.Raw
	}
	return SanitizeFilename(name) + profile.Ext
}

// SanitizeFilename strips characters that are unsafe in attachment names
// and on common filesystems.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, r == 0x7f:
		case strings.ContainsRune(`/\:*?"<>|`, r):
		default:
			b.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(b.String())
	clean = strings.Trim(clean, ".")
	if len(clean) > 120 {
		clean = clean[:120]
	}
	if clean == "" {
		return "track"
	}
	return clean
}
