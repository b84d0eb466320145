package domain

import (
	"encoding/base64"
	"strings"
)

// TrackKind enumerates the shapes a client-supplied track reference can take.
// A reference is parsed exactly once at the HTTP boundary; downstream code
// switches on Kind instead of re-sniffing string prefixes.
type TrackKind string

const (
	// KindCatalog is a raw catalog identifier, typically an ISRC.
	KindCatalog TrackKind = "catalog"
	// KindProvider is a provider-prefixed identifier such as "dab_1234".
	KindProvider TrackKind = "provider"
	// KindURL is a foreign URL, either plain or base64-encoded behind the
	// "LINK:" prefix used by imported tracks.
	KindURL TrackKind = "url"
	// KindQuery is a free-text search query.
	KindQuery TrackKind = "query"
)

// TrackRef is the parsed form of an opaque track reference.
type TrackRef struct {
	// Raw is the reference exactly as received. Cache keys are derived
	// from Raw so that the same client reference always maps to the same
	// cache entry regardless of how it was parsed.
	Raw string

	Kind     TrackKind
	ID       string // catalog or provider-native id, prefix stripped
	Provider string // provider name for KindProvider refs
	URL      string // decoded URL for KindURL refs
	Query    string // query text for KindQuery refs
}

// linkPrefix marks references that carry a base64url-encoded foreign URL.
const linkPrefix = "LINK:"

// providerPrefixes maps known id prefixes to provider names.
var providerPrefixes = map[string]string{
	"dab_": "dab",
	"dz_":  "deezer",
}

// ParseTrackRef classifies a raw track reference into one of the four
// closed variants. It returns ErrInvalidIdentifier for empty input and for
// LINK: references whose payload is not valid base64.
func ParseTrackRef(raw string) (TrackRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TrackRef{}, ErrInvalidIdentifier
	}

	if strings.HasPrefix(trimmed, linkPrefix) {
		encoded := strings.TrimPrefix(trimmed, linkPrefix)
		decoded, err := base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			// Imported ids are encoded without padding by some clients.
			decoded, err = base64.RawURLEncoding.DecodeString(encoded)
		}
		if err != nil || len(decoded) == 0 {
			return TrackRef{}, ErrInvalidIdentifier
		}
		return TrackRef{Raw: trimmed, Kind: KindURL, URL: string(decoded)}, nil
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return TrackRef{Raw: trimmed, Kind: KindURL, URL: trimmed}, nil
	}

	for prefix, provider := range providerPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			id := strings.TrimPrefix(trimmed, prefix)
			if id == "" {
				return TrackRef{}, ErrInvalidIdentifier
			}
			return TrackRef{Raw: trimmed, Kind: KindProvider, Provider: provider, ID: id}, nil
		}
	}

	if isCatalogID(trimmed) {
		return TrackRef{Raw: trimmed, Kind: KindCatalog, ID: trimmed}, nil
	}

	return TrackRef{Raw: trimmed, Kind: KindQuery, Query: trimmed}, nil
}

// isCatalogID reports whether the reference looks like a bare catalog code:
// no whitespace, reasonable length, identifier characters only.
func isCatalogID(s string) bool {
	if len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// Quality is the caller's source-quality preference.
type Quality string

const (
	QualityLossless Quality = "lossless"
	QualityHiRes    Quality = "hires"
)

// StreamLocator is a resolved, fetchable audio source.
type StreamLocator struct {
	URL string
	// SourceFormat is a best-effort container hint ("flac", "mp3", ...)
	// used by the transcoder bypass check. Empty when unknown.
	SourceFormat string
	// Direct marks locators that point at a playable audio file and can be
	// relayed to the client through the range proxy without transcoding.
	Direct bool
	// Provider is the name of the origin that produced this locator.
	Provider string
}
