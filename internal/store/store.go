// Package store provides filesystem-backed retrieval of dated JSON
// snapshot documents, confined to a single root directory.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/memcache"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
)

// DateFormat is the snapshot filename date layout.
const DateFormat = "2006-01-02"

// SentinelFile is a reserved non-data filename present in the search
// source's directory and remote index. Never treated as a date snapshot.
const SentinelFile = "last_submitted_to_cimp.json"

// ValidDate reports whether s is a well-formed YYYY-MM-DD date string.
func ValidDate(s string) bool {
	if len(s) != len(DateFormat) {
		return false
	}
	_, err := time.Parse(DateFormat, s)
	return err == nil
}

// Store reads dated snapshot documents from a directory tree. Multi-server
// sources keep one subdirectory per server; single-origin sources use the
// root directly (empty server name). The cache is a bounded FIFO map and
// purely an optimization: a cache hit returns the identical document.
type Store struct {
	root    string
	cache   *memcache.Cache[*model.Document]
	metrics metrics.Recorder
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, cacheSize int, recorder metrics.Recorder) (*Store, error) {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &Store{
		root:    abs,
		cache:   memcache.New[*model.Document](cacheSize),
		metrics: recorder,
	}, nil
}

// Root returns the store's confinement root.
func (s *Store) Root() string {
	return s.root
}

// Load reads the snapshot for one (server, date) pair. Pass an empty
// server for single-origin sources. Returns ErrNotFound when no file
// exists and ErrMalformedData when the file does not parse.
func (s *Store) Load(server, date string) (*model.Document, error) {
	cacheKey := server + "_" + date
	if doc, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncSnapshotCacheHit()
		return doc, nil
	}
	s.metrics.IncSnapshotCacheMiss()

	path, err := JoinUnder(s.root, server, date+".json")
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no data for %q on %s", ErrNotFound, server, date)
		}
		return nil, fmt.Errorf("read snapshot %q/%s: %w", server, date, err)
	}

	doc := &model.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("%w: %q on %s: %v", ErrMalformedData, server, date, err)
	}

	s.cache.Put(cacheKey, doc)
	return doc, nil
}

// AvailableDates returns the sorted union of snapshot dates found in the
// given server subdirectories (or the root, when called with no servers).
// Malformed filenames and the sentinel file are silently skipped; a
// missing server directory contributes nothing.
func (s *Store) AvailableDates(servers ...string) ([]string, error) {
	if len(servers) == 0 {
		servers = []string{""}
	}

	seen := make(map[string]struct{})
	for _, server := range servers {
		dir, err := JoinUnder(s.root, server)
		if err != nil {
			return nil, err
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan %q: %w", server, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || name == SentinelFile || !strings.HasSuffix(name, ".json") {
				continue
			}
			stem := strings.TrimSuffix(name, ".json")
			if !ValidDate(stem) {
				continue
			}
			seen[stem] = struct{}{}
		}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// WriteSnapshot stores raw snapshot bytes for a (server, date) pair,
// overwriting any existing file. The write goes to a temp file first and
// is renamed into place so a failure never leaves a corrupt file visible.
func (s *Store) WriteSnapshot(server, date string, data []byte) error {
	dir, err := JoinUnder(s.root, server)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create server dir %q: %w", server, err)
	}

	path, err := JoinUnder(s.root, server, date+".json")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+date+".json.tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot %q/%s: %w", server, date, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot %q/%s: %w", server, date, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot %q/%s: %w", server, date, err)
	}

	// The old document may still be cached; drop it so the next Load
	// sees the overwritten file.
	s.cache.Remove(server + "_" + date)
	return nil
}
