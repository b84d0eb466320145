package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"audiocast/internal/domain"
)

func newBatchUC(res *fakeResolver) *BatchDownload {
	return &BatchDownload{
		Download: newDownloadUC(res, newMemCache()),
		Logger:   testLogger(),
	}
}

func readArchive(t *testing.T, archive []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestBatchBuildsZipArchive(t *testing.T) {
	res := &fakeResolver{loc: domain.StreamLocator{URL: "https://cdn/x"}}
	uc := newBatchUC(res)

	out, err := uc.Execute(context.Background(), BatchInput{
		AlbumName: "Greatest Hits",
		Items: []BatchItem{
			{TrackID: "USUM71703861", Name: "One", Artist: "Band"},
			{TrackID: "USUM71703862", Name: "Two", Artist: "Band"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.JobID == "" {
		t.Fatal("missing job id")
	}
	if out.Filename != "Greatest Hits.zip" {
		t.Fatalf("filename = %q", out.Filename)
	}

	files := readArchive(t, out.Archive)
	if len(files) != 2 {
		t.Fatalf("archive entries = %v", files)
	}
	if files["Band - One.mp3"] != "encoded" {
		t.Fatalf("entry contents = %q", files["Band - One.mp3"])
	}
	if _, ok := files["Band - Two.mp3"]; !ok {
		t.Fatalf("missing second entry, got %v", files)
	}
}

func TestBatchSkipsFailedItems(t *testing.T) {
	// Resolver fails every item; only the invalid id and the failures are
	// reported, not an archive error per track.
	res := &fakeResolver{err: domain.ErrNotFound}
	uc := newBatchUC(res)

	_, err := uc.Execute(context.Background(), BatchInput{
		Items: []BatchItem{
			{TrackID: "USUM71703861"},
			{TrackID: ""},
		},
	})
	if !errors.Is(err, domain.ErrOriginExhausted) {
		t.Fatalf("err = %v, want ErrOriginExhausted when nothing was added", err)
	}
}

func TestBatchPartialFailureStillDelivers(t *testing.T) {
	res := &fakeResolver{loc: domain.StreamLocator{URL: "https://cdn/x"}}
	uc := newBatchUC(res)

	out, err := uc.Execute(context.Background(), BatchInput{
		Items: []BatchItem{
			{TrackID: "USUM71703861", Name: "Good"},
			{TrackID: "", Name: "Broken"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Skipped) != 1 {
		t.Fatalf("skipped = %v", out.Skipped)
	}
	if len(readArchive(t, out.Archive)) != 1 {
		t.Fatal("archive should carry the good track")
	}
}

func TestBatchDeduplicatesEntryNames(t *testing.T) {
	res := &fakeResolver{loc: domain.StreamLocator{URL: "https://cdn/x"}}
	uc := newBatchUC(res)

	out, err := uc.Execute(context.Background(), BatchInput{
		Items: []BatchItem{
			{TrackID: "USUM71703861", Name: "Same", Artist: "Band"},
			{TrackID: "USUM71703862", Name: "Same", Artist: "Band"},
			{TrackID: "USUM71703863", Name: "Same", Artist: "Band"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	files := readArchive(t, out.Archive)
	for _, name := range []string{"Band - Same.mp3", "Band - Same (1).mp3", "Band - Same (2).mp3"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing entry %q in %v", name, files)
		}
	}
}

func TestBatchEmptyAlbumNameUsesJobID(t *testing.T) {
	res := &fakeResolver{loc: domain.StreamLocator{URL: "https://cdn/x"}}
	uc := newBatchUC(res)

	out, err := uc.Execute(context.Background(), BatchInput{
		Items: []BatchItem{{TrackID: "USUM71703861", Name: "One"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Filename != out.JobID+".zip" {
		t.Fatalf("filename = %q, job = %q", out.Filename, out.JobID)
	}
}
