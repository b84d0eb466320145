package apihttp

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"audiocast/internal/domain"
	"audiocast/internal/metrics"
	"audiocast/internal/usecase"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStream serves GET /stream/{id}?q=&hires=. Proxyable sources are
// relayed upstream with range support; everything else is fetched,
// transcoded and served from memory with local range handling.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	raw := trackIDFromPath(r.URL.Path, "/stream/")
	ref, err := domain.ParseTrackRef(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid track identifier")
		return
	}

	input := usecase.StreamInput{
		Ref:        ref,
		Hint:       r.URL.Query().Get("q"),
		HiRes:      parseBoolQuery(r.URL.Query().Get("hires")),
		AllowProxy: s.proxy != nil,
	}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	out, err := s.stream.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	if out.ProxyURL != "" {
		if err := s.proxy.Do(w, r, out.ProxyURL); err == nil {
			return
		} else {
			s.logger.Warn("proxy failed before headers, falling back to local fetch",
				slog.String("ref", ref.Raw),
				slog.String("error", err.Error()),
			)
		}
		input.AllowProxy = false
		out, err = s.stream.Execute(r.Context(), input)
		if err != nil {
			writeUseCaseError(w, err)
			return
		}
	}

	serveAudio(w, r, out.MIME, out.Data)
}

// serveAudio writes buffered audio with byte-range support.
func serveAudio(w http.ResponseWriter, r *http.Request, mime string, data []byte) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
}

// handleDownload serves GET /download/{id}?format=&filename= as an
// attachment with tags embedded.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.download == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "downloads not available")
		return
	}
	raw := trackIDFromPath(r.URL.Path, "/download/")
	ref, err := domain.ParseTrackRef(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid track identifier")
		return
	}

	out, err := s.download.Execute(r.Context(), usecase.DownloadInput{
		Ref:      ref,
		Hint:     r.URL.Query().Get("q"),
		Format:   r.URL.Query().Get("format"),
		Filename: r.URL.Query().Get("filename"),
	})
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	w.Header().Set("Content-Type", out.MIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

type batchDownloadRequest struct {
	TrackIDs  []string `json:"trackIds"`
	Names     []string `json:"names"`
	Artists   []string `json:"artists"`
	AlbumName string   `json:"albumName"`
	Format    string   `json:"format"`
}

// handleBatchDownload serves POST /download/batch: a zip of several tracks,
// skipping the ones that fail.
func (s *Server) handleBatchDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.batch == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "batch downloads not available")
		return
	}

	var req batchDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.TrackIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "trackIds is required")
		return
	}

	items := make([]usecase.BatchItem, 0, len(req.TrackIDs))
	for i, id := range req.TrackIDs {
		item := usecase.BatchItem{TrackID: id}
		if i < len(req.Names) {
			item.Name = req.Names[i]
		}
		if i < len(req.Artists) {
			item.Artist = req.Artists[i]
		}
		items = append(items, item)
	}

	out, err := s.batch.Execute(r.Context(), usecase.BatchInput{
		Items:     items,
		AlbumName: req.AlbumName,
		Format:    req.Format,
	})
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Archive)))
	w.Header().Set("X-Batch-Job", out.JobID)
	w.Header().Set("X-Skipped-Tracks", strconv.Itoa(len(out.Skipped)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Archive)
}

// handleHistory serves GET /history?limit= with the most recent plays.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "play history not available")
		return
	}

	limit, err := parseOptionalIntQuery(r.URL.Query().Get("limit"), 50)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	events, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "repository_error", err.Error())
		return
	}
	if events == nil {
		events = []domain.PlayEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": events})
}
