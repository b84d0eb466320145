// Package cache is the disk-backed content cache for transcoded audio.
// Entries are keyed by (track reference, format profile) and stored one file
// per key at {dir}/{derivedKey}.{format}. Eviction runs in two passes: a TTL
// sweep ordered by last access, then an LRU sweep until total size fits the
// byte budget.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"audiocast/internal/domain"
	"audiocast/internal/metrics"
)

type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

// Key derives the filesystem-safe cache key for a track reference.
//
// Short references made of identifier characters are used directly so cache
// directories stay debuggable; everything else (long ids, LINK: payloads,
// URLs) is content-hashed. The two forms cannot collide: a plain key is never
// 64 characters of lowercase hex, which is exactly what the hashed form
// always is.
func Key(trackID string) string {
	if isPlainKey(trackID) {
		return trackID
	}
	sum := sha256.Sum256([]byte(trackID))
	return hex.EncodeToString(sum[:])
}

const maxPlainKeyLen = 100

func isPlainKey(id string) bool {
	if id == "" || len(id) > maxPlainKeyLen {
		return false
	}
	hexOnly := true
	dotsOnly := true
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'f' || r >= '0' && r <= '9':
		case r >= 'g' && r <= 'z' || r >= 'A' && r <= 'Z':
			hexOnly = false
		case r == '-' || r == '_' || r == '.':
			hexOnly = false
		default:
			return false
		}
		if r != '.' {
			dotsOnly = false
		}
	}
	// "." and ".." are not usable file name stems.
	if dotsOnly {
		return false
	}
	// Reserve the 64-char lowercase-hex namespace for hashed keys.
	if hexOnly && len(id) == sha256.Size*2 {
		return false
	}
	return true
}

// Path returns the absolute entry path for (trackID, format).
func (s *Store) Path(trackID, format string) string {
	return filepath.Join(s.dir, Key(trackID)+"."+format)
}

// Has reports whether a non-empty cache entry exists.
func (s *Store) Has(trackID, format string) bool {
	info, err := os.Stat(s.Path(trackID, format))
	return err == nil && info.Size() > 0
}

// Read returns the cached bytes for (trackID, format) and refreshes the
// entry's access time so the LRU sweep sees it as recently used. A missing
// entry returns domain.ErrNotFound; disk errors are logged and reported as a
// miss so a broken cache never fails the request.
func (s *Store) Read(trackID, format string) ([]byte, error) {
	path := s.Path(trackID, format)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache read failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			metrics.CacheErrors.Inc()
		}
		metrics.CacheMisses.Inc()
		return nil, domain.ErrNotFound
	}
	if len(data) == 0 {
		metrics.CacheMisses.Inc()
		return nil, domain.ErrNotFound
	}
	// mtime doubles as last-access time; atime is not portable.
	now := s.now()
	_ = os.Chtimes(path, now, now)
	metrics.CacheHits.Inc()
	return data, nil
}

// Write stores bytes under (trackID, format). The entry is written to a
// temporary file in the cache directory and renamed into place so concurrent
// readers never observe a partial entry.
func (s *Store) Write(trackID, format string, data []byte) error {
	path := s.Path(trackID, format)
	tmp, err := os.CreateTemp(s.dir, Key(trackID)+".*.tmp")
	if err != nil {
		s.logger.Warn("cache write failed", slog.String("path", path), slog.String("error", err.Error()))
		metrics.CacheErrors.Inc()
		return err
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), path)
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		s.logger.Warn("cache write failed", slog.String("path", path), slog.String("error", werr.Error()))
		metrics.CacheErrors.Inc()
		return werr
	}
	s.logger.Info("cached entry",
		slog.String("key", Key(trackID)),
		slog.String("format", format),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// TotalSize returns the summed size of all cache entries in bytes.
func (s *Store) TotalSize() int64 {
	var total int64
	for _, e := range s.scan() {
		total += e.size
	}
	return total
}

// EntryCount returns the number of files currently in the cache.
func (s *Store) EntryCount() int {
	return len(s.scan())
}

type entry struct {
	path  string
	size  int64
	atime time.Time
}

func (s *Store) scan() []entry {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("cache scan failed", slog.String("dir", s.dir), slog.String("error", err.Error()))
		metrics.CacheErrors.Inc()
		return nil
	}
	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasSuffix(de.Name(), ".tmp") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			path:  filepath.Join(s.dir, de.Name()),
			size:  info.Size(),
			atime: info.ModTime(),
		})
	}
	return entries
}

// Sweep removes entries older than ttl, then removes the least recently
// accessed entries until the total size fits maxTotalBytes. Removal errors
// are logged and skipped; a sweep never fails the caller.
func (s *Store) Sweep(ttl time.Duration, maxTotalBytes int64) {
	entries := s.scan()
	sort.Slice(entries, func(i, j int) bool { return entries[i].atime.Before(entries[j].atime) })

	now := s.now()
	cutoff := now.Add(-ttl)
	var total int64
	live := entries[:0]
	for _, e := range entries {
		if ttl > 0 && e.atime.Before(cutoff) {
			if s.remove(e, "expired") {
				continue
			}
		}
		total += e.size
		live = append(live, e)
	}

	// Oldest-first LRU pass over whatever survived the TTL pass.
	for _, e := range live {
		if maxTotalBytes <= 0 || total <= maxTotalBytes {
			break
		}
		if s.remove(e, "size pressure") {
			total -= e.size
		}
	}

	metrics.CacheSizeBytes.Set(float64(total))
	s.logger.Debug("cache sweep complete",
		slog.Int64("totalBytes", total),
		slog.Int("entries", len(live)),
	)
}

func (s *Store) remove(e entry, reason string) bool {
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("cache evict failed",
			slog.String("path", e.path),
			slog.String("error", err.Error()),
		)
		metrics.CacheErrors.Inc()
		return false
	}
	metrics.CacheEvictions.Inc()
	s.logger.Info("evicted cache entry",
		slog.String("path", filepath.Base(e.path)),
		slog.String("reason", reason),
	)
	return true
}
