package dab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"audiocast/internal/domain"
)

func TestArtistFieldAcceptsBothShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `{"artist":"Some Artist"}`, "Some Artist"},
		{"object", `{"artist":{"name":"Some Artist"}}`, "Some Artist"},
		{"null", `{"artist":null}`, ""},
		{"unknown shape", `{"artist":[1,2]}`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var tr track
			if err := json.Unmarshal([]byte(tc.raw), &tr); err != nil {
				t.Fatal(err)
			}
			if tr.Artist.Name != tc.want {
				t.Fatalf("artist = %q, want %q", tr.Artist.Name, tc.want)
			}
		})
	}
}

func TestTrackMetadata(t *testing.T) {
	raw := `{
		"id": 123456,
		"title": "Song",
		"albumTitle": "Album",
		"albumCover": "https://img.example/cover.jpg",
		"artist": "Artist",
		"audioQuality": {"isHiRes": true}
	}`
	var tr track
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		t.Fatal(err)
	}
	if tr.ID.String() != "123456" {
		t.Fatalf("id = %q", tr.ID)
	}

	meta := tr.metadata()
	if meta.Title != "Song" || meta.Album != "Album" || meta.Artist() != "Artist" {
		t.Fatalf("meta = %+v", meta)
	}
	if !meta.HiRes {
		t.Error("hi-res flag lost")
	}
	if meta.CoverURL != "https://img.example/cover.jpg" {
		t.Fatalf("cover = %q", meta.CoverURL)
	}
}

func TestTrackIDAcceptsStringAndNumber(t *testing.T) {
	for _, raw := range []string{`{"id": 42}`, `{"id": "42"}`} {
		var tr track
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if tr.ID.String() != "42" {
			t.Fatalf("id = %q for %s", tr.ID, raw)
		}
	}
}

func TestResolveWithoutSessionIsSoftMiss(t *testing.T) {
	c := New(Config{}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if c.Enabled() {
		t.Fatal("no session token must disable the client")
	}

	ref, err := domain.ParseTrackRef("dab_123")
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = c.Resolve(context.Background(), ref, "", domain.QualityHiRes)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound so the resolver advances", err)
	}
}

func TestResolveRejectsForeignProviderIDs(t *testing.T) {
	c := New(Config{SessionToken: "tok"}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ref, err := domain.ParseTrackRef("dz_987")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Resolve(context.Background(), ref, "", domain.QualityLossless); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
