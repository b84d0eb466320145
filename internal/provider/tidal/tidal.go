// Package tidal resolves catalog tracks against a fleet of interchangeable
// community API mirrors fronting the Tidal catalog. Track search and token
// exchange go to the official API; lossless download URLs come from whichever
// mirror answers first.
package tidal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"audiocast/internal/domain"
	"audiocast/internal/mirror"
)

const (
	authURL   = "https://auth.tidal.com/v1/oauth2/token"
	searchURL = "https://api.tidal.com/v1/search/tracks"

	// ProviderName is the label used by the mirror selector and metrics.
	ProviderName = "tidal"
)

type Config struct {
	ClientID     string
	ClientSecret string
	// HealthFeedURL, when set, is ingested once per session before the first
	// mirror iteration.
	HealthFeedURL string
}

type Client struct {
	cfg     Config
	client  *http.Client
	mirrors *mirror.Selector
	logger  *slog.Logger

	mu    sync.Mutex
	token string
}

func New(cfg Config, mirrors *mirror.Selector, logger *slog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		mirrors: mirrors,
		logger:  logger,
	}
}

func (c *Client) Name() string { return ProviderName }

// Resolve searches the catalog for the reference (ISRC or free text), then
// walks the mirror list for a lossless download URL. Any mirror failure moves
// to the next candidate; domain.ErrNotFound means no mirror could serve the
// track.
func (c *Client) Resolve(ctx context.Context, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error) {
	if ref.Kind != domain.KindCatalog && ref.Kind != domain.KindQuery {
		return domain.StreamLocator{}, domain.Metadata{}, domain.ErrNotFound
	}

	track, err := c.search(ctx, ref, hint)
	if err != nil {
		return domain.StreamLocator{}, domain.Metadata{}, err
	}

	c.mirrors.RefreshOnce(ctx, ProviderName, c.cfg.HealthFeedURL)

	for _, endpoint := range c.mirrors.Candidates(ProviderName) {
		downloadURL, err := c.downloadURL(ctx, endpoint, track.ID)
		if err != nil {
			c.logger.Debug("tidal mirror failed",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.mirrors.MarkGood(ProviderName, endpoint)
		return domain.StreamLocator{URL: downloadURL, SourceFormat: "flac"}, track.metadata(), nil
	}
	return domain.StreamLocator{}, domain.Metadata{}, fmt.Errorf("%w: no mirror served track %d", domain.ErrNotFound, track.ID)
}

type searchItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ISRC     string `json:"isrc"`
	Duration int    `json:"duration"`
	TrackNum int    `json:"trackNumber"`
	Artists  []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Title string `json:"title"`
		Cover string `json:"cover"`
	} `json:"album"`
	AudioQuality string `json:"audioQuality"`
}

func (t searchItem) metadata() domain.Metadata {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	meta := domain.Metadata{
		Title:       t.Title,
		Artists:     artists,
		Album:       t.Album.Title,
		TrackNumber: t.TrackNum,
		HiRes:       t.AudioQuality == "HI_RES" || t.AudioQuality == "HI_RES_LOSSLESS",
	}
	if t.Album.Cover != "" {
		// Cover ids are dash-separated UUIDs addressing the image CDN.
		meta.CoverURL = "https://resources.tidal.com/images/" + strings.ReplaceAll(t.Album.Cover, "-", "/") + "/640x640.jpg"
	}
	return meta
}

// search finds the catalog track for the reference: exact ISRC match wins,
// otherwise the first search result.
func (c *Client) search(ctx context.Context, ref domain.TrackRef, hint string) (searchItem, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return searchItem{}, fmt.Errorf("tidal auth: %w", err)
	}

	query := hint
	if query == "" {
		if ref.Kind == domain.KindQuery {
			query = ref.Query
		} else {
			query = ref.ID
		}
	}

	params := url.Values{
		"query":       {query},
		"limit":       {"25"},
		"offset":      {"0"},
		"countryCode": {"US"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return searchItem{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return searchItem{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return searchItem{}, fmt.Errorf("tidal search returned %d", resp.StatusCode)
	}

	var body struct {
		Items []searchItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return searchItem{}, err
	}
	if len(body.Items) == 0 {
		return searchItem{}, domain.ErrNotFound
	}
	if ref.Kind == domain.KindCatalog {
		for _, item := range body.Items {
			if item.ISRC == ref.ID {
				return item, nil
			}
		}
	}
	return body.Items[0], nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	form := url.Values{
		"client_id":  {c.cfg.ClientID},
		"grant_type": {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}
	c.token = body.AccessToken
	return c.token, nil
}

// downloadURL asks one mirror for the track's lossless download URL. Mirrors
// answer in two shapes: a versioned envelope whose data.manifest is a base64
// JSON document with a urls list, and a legacy shape carrying
// OriginalTrackUrl (bare object, list of objects, or a plain url field).
func (c *Client) downloadURL(ctx context.Context, endpoint string, trackID int64) (string, error) {
	reqURL := fmt.Sprintf("%s/track/?id=%d&quality=LOSSLESS", endpoint, trackID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mirror returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(strings.ToLower(ct), "html") {
		return "", fmt.Errorf("mirror returned HTML")
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return parsePayload(raw)
}

func parsePayload(raw []byte) (string, error) {
	var envelope struct {
		Version string `json:"version"`
		Data    struct {
			Manifest string `json:"manifest"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Version != "" && envelope.Data.Manifest != "" {
		decoded, err := base64.StdEncoding.DecodeString(envelope.Data.Manifest)
		if err != nil {
			return "", fmt.Errorf("manifest decode: %w", err)
		}
		var manifest struct {
			URLs []string `json:"urls"`
		}
		if err := json.Unmarshal(decoded, &manifest); err != nil {
			return "", fmt.Errorf("manifest parse: %w", err)
		}
		if len(manifest.URLs) == 0 {
			return "", fmt.Errorf("manifest carried no urls")
		}
		return manifest.URLs[0], nil
	}

	var list []struct {
		OriginalTrackURL string `json:"OriginalTrackUrl"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if item.OriginalTrackURL != "" {
				return item.OriginalTrackURL, nil
			}
		}
		return "", fmt.Errorf("legacy payload carried no track url")
	}

	var obj struct {
		OriginalTrackURL string `json:"OriginalTrackUrl"`
		URL              string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("unrecognized mirror payload: %w", err)
	}
	if obj.OriginalTrackURL != "" {
		return obj.OriginalTrackURL, nil
	}
	if obj.URL != "" {
		return obj.URL, nil
	}
	return "", fmt.Errorf("unrecognized mirror payload")
}
