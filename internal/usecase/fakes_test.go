package usecase

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"audiocast/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func mustRef(t *testing.T, raw string) domain.TrackRef {
	t.Helper()
	ref, err := domain.ParseTrackRef(raw)
	if err != nil {
		t.Fatal(err)
	}
	return ref
}

type fakeResolver struct {
	loc     domain.StreamLocator
	meta    domain.Metadata
	err     error
	calls   int
	quality domain.Quality
}

func (f *fakeResolver) Resolve(_ context.Context, _ domain.TrackRef, _ string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error) {
	f.calls++
	f.quality = quality
	return f.loc, f.meta, f.err
}

// memCache is an in-memory ContentCache; writeErr simulates a broken disk.
type memCache struct {
	entries  map[string][]byte
	writeErr error
	reads    int
	writes   int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (m *memCache) Read(trackID, format string) ([]byte, error) {
	m.reads++
	if data, ok := m.entries[trackID+"."+format]; ok {
		return data, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCache) Write(trackID, format string, data []byte) error {
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.entries[trackID+"."+format] = data
	return nil
}

func (m *memCache) Sweep(time.Duration, int64) {}

type fakeEncoder struct {
	out      []byte
	err      error
	calls    int
	urlCalls int
	lastURL  string
}

func (f *fakeEncoder) Encode(_ context.Context, src []byte, _ string, _ domain.Profile) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return src, nil
}

func (f *fakeEncoder) EncodeURL(_ context.Context, srcURL string, _ domain.Profile) ([]byte, error) {
	f.urlCalls++
	f.lastURL = srcURL
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

// passthroughTagger marks the payload so tests can tell the tag pass ran.
type passthroughTagger struct {
	calls int
}

func (p *passthroughTagger) Embed(_ context.Context, data []byte, _ string, meta domain.Metadata) []byte {
	p.calls++
	if meta.Title == "" {
		return data
	}
	return append(append([]byte(nil), data...), []byte(" +tags")...)
}

type fakeMetaStore struct {
	stored map[string]domain.Metadata
}

func newFakeMetaStore() *fakeMetaStore {
	return &fakeMetaStore{stored: map[string]domain.Metadata{}}
}

func (f *fakeMetaStore) Upsert(_ context.Context, trackID string, meta domain.Metadata) error {
	f.stored[trackID] = meta
	return nil
}

func (f *fakeMetaStore) Get(_ context.Context, trackID string) (domain.Metadata, error) {
	if meta, ok := f.stored[trackID]; ok {
		return meta, nil
	}
	return domain.Metadata{}, domain.ErrNotFound
}

type fakeHistory struct {
	events []domain.PlayEvent
}

func (f *fakeHistory) Record(_ context.Context, ev domain.PlayEvent) error {
	f.events = append(f.events, ev)
	return nil
}
