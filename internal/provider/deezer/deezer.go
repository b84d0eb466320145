// Package deezer resolves catalog tracks through the public Deezer catalog
// API plus a companion download gateway that serves FLAC links per track id.
package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"audiocast/internal/domain"
)

const (
	catalogURL = "https://api.deezer.com"

	ProviderName = "deezer"
)

type Config struct {
	// GatewayURL is the download gateway base, e.g. https://api.deezmate.com.
	GatewayURL string
}

type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (c *Client) Name() string { return ProviderName }

// Resolve maps the reference to a Deezer track id (ISRC lookup for catalog
// ids, search for queries, direct for dz_ ids), then asks the gateway for
// the FLAC download link.
func (c *Client) Resolve(ctx context.Context, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error) {
	var tr track
	var err error
	switch {
	case ref.Kind == domain.KindProvider && ref.Provider == ProviderName:
		tr, err = c.trackByID(ctx, ref.ID)
	case ref.Kind == domain.KindCatalog:
		tr, err = c.trackByISRC(ctx, ref.ID)
	case ref.Kind == domain.KindQuery:
		query := hint
		if query == "" {
			query = ref.Query
		}
		tr, err = c.searchTrack(ctx, query)
	default:
		return domain.StreamLocator{}, domain.Metadata{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StreamLocator{}, domain.Metadata{}, err
	}

	flacURL, err := c.downloadURL(ctx, tr.ID)
	if err != nil {
		return domain.StreamLocator{}, domain.Metadata{}, err
	}
	return domain.StreamLocator{URL: flacURL, SourceFormat: "flac"}, tr.metadata(), nil
}

type track struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ISRC     string `json:"isrc"`
	Position int    `json:"track_position"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title       string `json:"title"`
		CoverXL     string `json:"cover_xl"`
		CoverBig    string `json:"cover_big"`
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t track) metadata() domain.Metadata {
	meta := domain.Metadata{
		Title:       t.Title,
		Album:       t.Album.Title,
		TrackNumber: t.Position,
	}
	if t.Artist.Name != "" {
		meta.Artists = []string{t.Artist.Name}
	}
	if meta.CoverURL = t.Album.CoverXL; meta.CoverURL == "" {
		meta.CoverURL = t.Album.CoverBig
	}
	if len(t.Album.ReleaseDate) >= 4 {
		var year int
		if _, err := fmt.Sscanf(t.Album.ReleaseDate[:4], "%d", &year); err == nil {
			meta.Year = year
		}
	}
	return meta
}

func (c *Client) trackByISRC(ctx context.Context, isrc string) (track, error) {
	return c.fetchTrack(ctx, catalogURL+"/2.0/track/isrc:"+url.PathEscape(isrc))
}

func (c *Client) trackByID(ctx context.Context, id string) (track, error) {
	return c.fetchTrack(ctx, catalogURL+"/track/"+url.PathEscape(id))
}

func (c *Client) fetchTrack(ctx context.Context, reqURL string) (track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return track{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return track{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return track{}, fmt.Errorf("deezer catalog returned %d", resp.StatusCode)
	}
	var t track
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return track{}, err
	}
	// The catalog reports lookup misses as 200 with an error object.
	if t.Error != nil || t.ID == 0 {
		return track{}, domain.ErrNotFound
	}
	return t, nil
}

func (c *Client) searchTrack(ctx context.Context, query string) (track, error) {
	params := url.Values{"q": {query}, "limit": {"5"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL+"/search/track?"+params.Encode(), nil)
	if err != nil {
		return track{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return track{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return track{}, fmt.Errorf("deezer search returned %d", resp.StatusCode)
	}
	var body struct {
		Data []track `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return track{}, err
	}
	if len(body.Data) == 0 {
		return track{}, domain.ErrNotFound
	}
	return body.Data[0], nil
}

// downloadURL asks the gateway for the track's download links and returns
// the FLAC one.
func (c *Client) downloadURL(ctx context.Context, trackID int64) (string, error) {
	base := strings.TrimRight(c.cfg.GatewayURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/dl/%d", base, trackID), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download gateway returned %d", resp.StatusCode)
	}
	var body struct {
		Success bool `json:"success"`
		Links   struct {
			FLAC string `json:"flac"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if !body.Success || body.Links.FLAC == "" {
		return "", fmt.Errorf("%w: gateway has no flac link for track %d", domain.ErrNotFound, trackID)
	}
	return body.Links.FLAC, nil
}
