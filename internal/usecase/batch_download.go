package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"audiocast/internal/domain"
)

type BatchDownload struct {
	Download *DownloadTrack
	Logger   *slog.Logger
}

type BatchItem struct {
	TrackID string
	Name    string
	Artist  string
}

type BatchInput struct {
	Items []BatchItem
	// AlbumName names the zip archive; empty falls back to the job id.
	AlbumName string
	Format    string
}

type BatchOutput struct {
	JobID    string
	Archive  []byte
	Filename string
	// Skipped lists track ids that failed and were left out of the archive.
	Skipped []string
}

// Execute builds a zip archive of the requested tracks. Individual failures
// are skipped so one dead track never sinks the whole batch; only an empty
// result is an error.
func (uc *BatchDownload) Execute(ctx context.Context, input BatchInput) (BatchOutput, error) {
	jobID := uuid.NewString()
	logger := uc.Logger.With(slog.String("job", jobID))
	logger.Info("batch download started",
		slog.Int("tracks", len(input.Items)),
		slog.String("format", input.Format),
	)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]int)
	var added int
	var skipped []string

	for _, item := range input.Items {
		if ctx.Err() != nil {
			return BatchOutput{}, ctx.Err()
		}
		ref, err := domain.ParseTrackRef(item.TrackID)
		if err != nil {
			logger.Warn("skipping invalid batch item", slog.String("trackId", item.TrackID))
			skipped = append(skipped, item.TrackID)
			continue
		}

		hint := item.Name
		if item.Artist != "" && item.Name != "" {
			hint = item.Artist + " " + item.Name
		}
		out, err := uc.Download.Execute(ctx, DownloadInput{
			Ref:      ref,
			Hint:     hint,
			Format:   input.Format,
			Filename: batchItemName(item),
		})
		if err != nil {
			logger.Warn("skipping failed batch item",
				slog.String("trackId", item.TrackID),
				slog.String("error", err.Error()),
			)
			skipped = append(skipped, item.TrackID)
			continue
		}

		entry, err := zw.Create(dedupeName(out.Filename, used))
		if err != nil {
			return BatchOutput{}, err
		}
		if _, err := entry.Write(out.Data); err != nil {
			return BatchOutput{}, err
		}
		added++
	}

	if err := zw.Close(); err != nil {
		return BatchOutput{}, err
	}
	if added == 0 {
		return BatchOutput{}, domain.ErrOriginExhausted
	}

	name := SanitizeFilename(input.AlbumName)
	if input.AlbumName == "" {
		name = jobID
	}
	logger.Info("batch download complete",
		slog.Int("added", added),
		slog.Int("skipped", len(skipped)),
	)
	return BatchOutput{
		JobID:    jobID,
		Archive:  buf.Bytes(),
		Filename: name + ".zip",
		Skipped:  skipped,
	}, nil
}

func batchItemName(item BatchItem) string {
	switch {
	case item.Artist != "" && item.Name != "":
		return item.Artist + " - " + item.Name
	case item.Name != "":
		return item.Name
	default:
		return ""
	}
}

// dedupeName makes zip entry names unique by suffixing repeats before the
// extension.
func dedupeName(name string, used map[string]int) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := ""
	stem := name
	if i := lastDot(name); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	return fmt.Sprintf("%s (%d)%s", stem, n, ext)
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
