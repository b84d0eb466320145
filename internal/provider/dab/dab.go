// Package dab resolves hi-res tracks from the Dab Music API using session
// cookie auth. Quality selectors follow the upstream convention: 27 is
// hi-res, 7 is plain lossless.
package dab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"audiocast/internal/domain"
)

const (
	baseURL = "https://dabmusic.xyz/api"

	ProviderName = "dab"

	qualityHiRes    = "27"
	qualityLossless = "7"
)

type Config struct {
	SessionToken string
	VisitorID    string
}

type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (c *Client) Name() string { return ProviderName }

// Enabled reports whether session credentials are present. Without them the
// upstream rejects every stream request, so the resolver skips this origin.
func (c *Client) Enabled() bool { return c.cfg.SessionToken != "" }

// Resolve serves provider-native ids directly and falls back to a track
// search for catalog ids and free-text queries. Hi-res is requested only
// when the caller asked for it.
func (c *Client) Resolve(ctx context.Context, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error) {
	if !c.Enabled() {
		return domain.StreamLocator{}, domain.Metadata{}, fmt.Errorf("%w: dab session not configured", domain.ErrNotFound)
	}

	var tr track
	var err error
	switch {
	case ref.Kind == domain.KindProvider && ref.Provider == ProviderName:
		tr, err = c.getTrack(ctx, ref.ID)
	case ref.Kind == domain.KindCatalog || ref.Kind == domain.KindQuery:
		query := hint
		if query == "" {
			if ref.Kind == domain.KindQuery {
				query = ref.Query
			} else {
				query = ref.ID
			}
		}
		tr, err = c.searchTrack(ctx, query, ref)
	default:
		return domain.StreamLocator{}, domain.Metadata{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StreamLocator{}, domain.Metadata{}, err
	}

	q := qualityLossless
	if quality == domain.QualityHiRes {
		q = qualityHiRes
	}
	streamURL, err := c.streamURL(ctx, tr.ID, q)
	if err != nil {
		return domain.StreamLocator{}, domain.Metadata{}, err
	}
	return domain.StreamLocator{URL: streamURL, SourceFormat: "flac"}, tr.metadata(), nil
}

type track struct {
	ID         json.Number `json:"id"`
	Title      string      `json:"title"`
	ISRC       string      `json:"isrc"`
	AlbumTitle string      `json:"albumTitle"`
	AlbumCover string      `json:"albumCover"`
	Artist     artistField `json:"artist"`
	Quality    struct {
		IsHiRes bool `json:"isHiRes"`
	} `json:"audioQuality"`
}

func (t track) metadata() domain.Metadata {
	meta := domain.Metadata{
		Title:    t.Title,
		Album:    t.AlbumTitle,
		CoverURL: t.AlbumCover,
		HiRes:    t.Quality.IsHiRes,
	}
	if t.Artist.Name != "" {
		meta.Artists = []string{t.Artist.Name}
	}
	return meta
}

// artistField tolerates both the bare-string and object encodings the
// upstream uses interchangeably.
type artistField struct {
	Name string
}

func (a *artistField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Name = s
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil // unknown shape, leave empty
	}
	a.Name = obj.Name
	return nil
}

func (c *Client) getTrack(ctx context.Context, id string) (track, error) {
	var body struct {
		Track *track `json:"track"`
		track
	}
	params := url.Values{"trackId": {id}}
	if err := c.getJSON(ctx, "/getTrack", params, &body); err != nil {
		if err := c.getJSON(ctx, "/track", params, &body); err != nil {
			return track{}, err
		}
	}
	if body.Track != nil {
		return *body.Track, nil
	}
	if body.ID == "" {
		return track{}, domain.ErrNotFound
	}
	return body.track, nil
}

// searchTrack runs a track search and prefers an exact ISRC match for
// catalog references.
func (c *Client) searchTrack(ctx context.Context, query string, ref domain.TrackRef) (track, error) {
	var body struct {
		Tracks []track `json:"tracks"`
	}
	params := url.Values{"q": {query}, "type": {"track"}, "limit": {"10"}}
	if err := c.getJSON(ctx, "/search", params, &body); err != nil {
		return track{}, err
	}
	if len(body.Tracks) == 0 {
		return track{}, domain.ErrNotFound
	}
	if ref.Kind == domain.KindCatalog {
		for _, t := range body.Tracks {
			if t.ISRC == ref.ID {
				return t, nil
			}
		}
	}
	return body.Tracks[0], nil
}

func (c *Client) streamURL(ctx context.Context, trackID json.Number, quality string) (string, error) {
	var body struct {
		URL string `json:"url"`
	}
	params := url.Values{"trackId": {trackID.String()}, "quality": {quality}}
	if err := c.getJSON(ctx, "/stream", params, &body); err != nil {
		return "", err
	}
	if body.URL == "" {
		return "", fmt.Errorf("stream endpoint returned no url")
	}
	return body.URL, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Referer", "https://dabmusic.xyz/")
	req.Header.Set("Origin", "https://dabmusic.xyz")
	req.AddCookie(&http.Cookie{Name: "session", Value: c.cfg.SessionToken})
	req.AddCookie(&http.Cookie{Name: "visitor_id", Value: c.cfg.VisitorID})

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.logger.Warn("dab session rejected, token may have expired")
		return fmt.Errorf("dab unauthorized (%d)", resp.StatusCode)
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return fmt.Errorf("dab %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
