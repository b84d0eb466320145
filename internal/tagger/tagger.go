// Package tagger embeds track metadata and cover art into downloaded audio.
// Tagging is strictly best-effort: any failure returns the original bytes so
// a broken tag write never costs the user their download.
package tagger

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.senan.xyz/taglib"

	"audiocast/internal/domain"
)

type Tagger struct {
	client *http.Client
	logger *slog.Logger
}

func New(logger *slog.Logger) *Tagger {
	return &Tagger{
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Embed writes meta into a copy of data and returns the tagged bytes. ext is
// the profile's file extension including the dot; the tag container is
// chosen from it. On any failure the input bytes come back unchanged.
func (t *Tagger) Embed(ctx context.Context, data []byte, ext string, meta domain.Metadata) []byte {
	if meta.Title == "" && len(meta.Artists) == 0 {
		return data
	}

	tmp, err := os.CreateTemp("", "audiocast-tag-*"+ext)
	if err != nil {
		t.logger.Warn("tagging skipped", slog.String("error", err.Error()))
		return data
	}
	path := tmp.Name()
	defer os.Remove(path)

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		t.logger.Warn("tagging skipped, temp write failed")
		return data
	}

	tags := map[string][]string{}
	if meta.Title != "" {
		tags[taglib.Title] = []string{meta.Title}
	}
	if len(meta.Artists) > 0 {
		tags[taglib.Artist] = meta.Artists
	}
	if meta.Album != "" {
		tags[taglib.Album] = []string{meta.Album}
	}
	if meta.Year > 0 {
		tags[taglib.Date] = []string{strconv.Itoa(meta.Year)}
	}
	if meta.TrackNumber > 0 {
		tags[taglib.TrackNumber] = []string{strconv.Itoa(meta.TrackNumber)}
	}
	if err := taglib.WriteTags(path, tags, 0); err != nil {
		t.logger.Warn("tag write failed, serving untagged",
			slog.String("title", meta.Title),
			slog.String("error", err.Error()),
		)
		return data
	}

	if cover := t.coverArt(ctx, meta); len(cover) > 0 {
		if err := taglib.WriteImage(path, cover); err != nil {
			t.logger.Warn("cover embed failed", slog.String("error", err.Error()))
		}
	}

	tagged, err := os.ReadFile(path)
	if err != nil {
		t.logger.Warn("tagged file read failed, serving untagged", slog.String("error", err.Error()))
		return data
	}
	return tagged
}

// coverArt returns resolved cover bytes, fetching CoverURL when the origin
// did not supply them inline.
func (t *Tagger) coverArt(ctx context.Context, meta domain.Metadata) []byte {
	if len(meta.CoverArt) > 0 {
		return meta.CoverArt
	}
	if meta.CoverURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.CoverURL, nil)
	if err != nil {
		return nil
	}
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug("cover fetch failed", slog.String("url", meta.CoverURL), slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	// Covers are small; cap the read anyway.
	cover, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil
	}
	return cover
}
