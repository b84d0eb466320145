// Package link resolves foreign-URL track references. URLs that already
// point at an audio file are passed through untouched; page URLs go through
// an external yt-dlp process that extracts the direct media URL.
package link

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"path"
	"strings"
	"time"

	"audiocast/internal/domain"
)

const ProviderName = "link"

// audioExts are URL path suffixes treated as directly playable.
var audioExts = map[string]string{
	".mp3":  "mp3",
	".m4a":  "m4a",
	".ogg":  "ogg",
	".wav":  "wav",
	".aac":  "aac",
	".flac": "flac",
	".opus": "opus",
}

// extractor runs the external URL extractor. Split out so tests can supply
// a fake instead of spawning processes.
type extractor interface {
	extract(ctx context.Context, pageURL string) (extraction, error)
}

type extraction struct {
	StreamURL string
	Title     string
	Uploader  string
}

type Client struct {
	logger *slog.Logger
	ext    extractor
}

// New builds a link resolver backed by the yt-dlp binary at binPath.
func New(binPath string, logger *slog.Logger) *Client {
	return &Client{logger: logger, ext: &ytdlp{bin: binPath}}
}

func (c *Client) Name() string { return ProviderName }

// Resolve turns a URL reference into a direct, proxyable stream locator.
func (c *Client) Resolve(ctx context.Context, ref domain.TrackRef, hint string, quality domain.Quality) (domain.StreamLocator, domain.Metadata, error) {
	if ref.Kind != domain.KindURL {
		return domain.StreamLocator{}, domain.Metadata{}, domain.ErrNotFound
	}

	if format, ok := directAudioFormat(ref.URL); ok {
		c.logger.Debug("direct audio url, skipping extractor", slog.String("url", ref.URL))
		return domain.StreamLocator{URL: ref.URL, SourceFormat: format, Direct: true}, domain.Metadata{Title: hint}, nil
	}

	res, err := c.ext.extract(ctx, ref.URL)
	if err != nil {
		return domain.StreamLocator{}, domain.Metadata{}, fmt.Errorf("url extraction: %w", err)
	}
	meta := domain.Metadata{Title: res.Title}
	if meta.Title == "" {
		meta.Title = hint
	}
	if res.Uploader != "" {
		meta.Artists = []string{res.Uploader}
	}
	return domain.StreamLocator{URL: res.StreamURL, Direct: true}, meta, nil
}

// directAudioFormat reports whether the URL path ends in a known audio
// extension, and which container that implies.
func directAudioFormat(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	format, ok := audioExts[ext]
	return format, ok
}

// ytdlp invokes the yt-dlp binary and reads the stream URL, title and
// uploader from one --print line each.
type ytdlp struct {
	bin string
}

func (y *ytdlp) extract(ctx context.Context, pageURL string) (extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.bin,
		"--quiet", "--no-warnings", "--no-playlist",
		"-f", "bestaudio/best",
		"--print", "url",
		"--print", "title",
		"--print", "uploader",
		pageURL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return extraction{}, fmt.Errorf("yt-dlp: %v: %s", err, msg)
	}

	var lines []string
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if len(lines) == 0 || lines[0] == "" {
		return extraction{}, fmt.Errorf("yt-dlp produced no stream url")
	}

	res := extraction{StreamURL: lines[0]}
	if len(lines) > 1 {
		res.Title = lines[1]
	}
	if len(lines) > 2 && lines[2] != "NA" {
		res.Uploader = lines[2]
	}
	return res, nil
}
