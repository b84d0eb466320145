package usecase

import (
	"context"
	"strings"
	"testing"

	"audiocast/internal/domain"
)

func newDownloadUC(res *fakeResolver, cache *memCache) *DownloadTrack {
	return &DownloadTrack{
		Resolver: res,
		Cache:    cache,
		Encoder:  &fakeEncoder{out: []byte("encoded")},
		Fetcher:  &fakeFetcher{data: []byte("source")},
		Logger:   testLogger(),
	}
}

func TestDownloadDerivesFilenameFromMetadata(t *testing.T) {
	res := &fakeResolver{
		loc:  domain.StreamLocator{URL: "https://cdn/x"},
		meta: domain.Metadata{Title: "Song", Artists: []string{"Some Artist"}},
	}
	uc := newDownloadUC(res, newMemCache())

	out, err := uc.Execute(context.Background(), DownloadInput{Ref: mustRef(t, "USUM71703861"), Format: "flac"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Filename != "Some Artist - Song.flac" {
		t.Fatalf("filename = %q", out.Filename)
	}
	if out.MIME != "audio/flac" {
		t.Fatalf("mime = %q", out.MIME)
	}
}

func TestDownloadExplicitFilenameWins(t *testing.T) {
	res := &fakeResolver{loc: domain.StreamLocator{URL: "https://cdn/x"}, meta: domain.Metadata{Title: "Song"}}
	uc := newDownloadUC(res, newMemCache())

	out, err := uc.Execute(context.Background(), DownloadInput{
		Ref:      mustRef(t, "USUM71703861"),
		Filename: "My Pick",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Filename != "My Pick.mp3" {
		t.Fatalf("filename = %q", out.Filename)
	}
}

func TestDownloadUnknownFormatFallsBackToDefault(t *testing.T) {
	res := &fakeResolver{loc: domain.StreamLocator{URL: "https://cdn/x"}}
	uc := newDownloadUC(res, newMemCache())

	out, err := uc.Execute(context.Background(), DownloadInput{Ref: mustRef(t, "USUM71703861"), Format: "wma"})
	if err != nil {
		t.Fatal(err)
	}
	if out.MIME != "audio/mpeg" || !strings.HasSuffix(out.Filename, ".mp3") {
		t.Fatalf("output = %+v, want default mp3 profile", out)
	}
}

func TestDownloadCacheStoresUntaggedBytes(t *testing.T) {
	cache := newMemCache()
	res := &fakeResolver{
		loc:  domain.StreamLocator{URL: "https://cdn/x"},
		meta: domain.Metadata{Title: "Song", Artists: []string{"A"}},
	}
	uc := newDownloadUC(res, cache)
	tagger := &passthroughTagger{}
	uc.Tagger = tagger

	out, err := uc.Execute(context.Background(), DownloadInput{Ref: mustRef(t, "USUM71703861")})
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Data) != "encoded +tags" {
		t.Fatalf("response data = %q, want tagged", out.Data)
	}
	if string(cache.entries["USUM71703861.mp3"]) != "encoded" {
		t.Fatalf("cache entry = %q, want untagged bytes", cache.entries["USUM71703861.mp3"])
	}
}

func TestDownloadCacheHitRecoversMetadataForTags(t *testing.T) {
	cache := newMemCache()
	cache.entries["USUM71703861.mp3"] = []byte("cached")
	meta := newFakeMetaStore()
	meta.stored["USUM71703861"] = domain.Metadata{Title: "Song", Artists: []string{"A"}}
	res := &fakeResolver{}
	uc := newDownloadUC(res, cache)
	uc.Metadata = meta
	tagger := &passthroughTagger{}
	uc.Tagger = tagger

	out, err := uc.Execute(context.Background(), DownloadInput{Ref: mustRef(t, "USUM71703861")})
	if err != nil {
		t.Fatal(err)
	}
	if res.calls != 0 {
		t.Fatal("cache hit must not resolve")
	}
	if string(out.Data) != "cached +tags" {
		t.Fatalf("data = %q, want cached bytes tagged from stored metadata", out.Data)
	}
	if out.Filename != "A - Song.mp3" {
		t.Fatalf("filename = %q", out.Filename)
	}
}

func TestDownloadWithoutTaggerServesRawBytes(t *testing.T) {
	res := &fakeResolver{loc: domain.StreamLocator{URL: "https://cdn/x"}}
	uc := newDownloadUC(res, newMemCache())

	out, err := uc.Execute(context.Background(), DownloadInput{Ref: mustRef(t, "USUM71703861")})
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Data) != "encoded" {
		t.Fatalf("data = %q", out.Data)
	}
	if out.Filename != "USUM71703861.mp3" {
		t.Fatalf("filename = %q, want the raw reference as last resort", out.Filename)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain name", "plain name"},
		{`a/b\c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"..hidden..", "hidden"},
		{"  padded  ", "padded"},
		{"ctrl\x00\x1fchars", "ctrlchars"},
		{strings.Repeat("x", 200), strings.Repeat("x", 120)},
		{`///`, "track"},
		{"", "track"},
	}
	for _, tc := range tests {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
