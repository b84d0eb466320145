package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"audiocast/internal/domain"
)

func TestTrackMetadata(t *testing.T) {
	raw := `{
		"id": 3135556,
		"title": "Harder, Better, Faster, Stronger",
		"track_position": 4,
		"artist": {"name": "Daft Punk"},
		"album": {
			"title": "Discovery",
			"cover_xl": "https://cdn.example/xl.jpg",
			"cover_big": "https://cdn.example/big.jpg",
			"release_date": "2001-03-07"
		}
	}`
	var tr track
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		t.Fatal(err)
	}

	meta := tr.metadata()
	if meta.Artist() != "Daft Punk" || meta.Album != "Discovery" || meta.TrackNumber != 4 {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.Year != 2001 {
		t.Fatalf("year = %d", meta.Year)
	}
	if meta.CoverURL != "https://cdn.example/xl.jpg" {
		t.Fatalf("cover = %q, want the XL image preferred", meta.CoverURL)
	}
}

func TestTrackMetadataFallbacks(t *testing.T) {
	var tr track
	if err := json.Unmarshal([]byte(`{"id":1,"title":"T","album":{"cover_big":"https://cdn.example/big.jpg","release_date":"bad"}}`), &tr); err != nil {
		t.Fatal(err)
	}
	meta := tr.metadata()
	if meta.CoverURL != "https://cdn.example/big.jpg" {
		t.Fatalf("cover = %q", meta.CoverURL)
	}
	if meta.Year != 0 {
		t.Fatalf("year = %d, want 0 for unparsable release date", meta.Year)
	}
}

func TestResolveRejectsForeignProviderIDs(t *testing.T) {
	c := New(Config{GatewayURL: "https://gw.example"}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ref, err := domain.ParseTrackRef("dab_123")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Resolve(context.Background(), ref, "", domain.QualityLossless); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
