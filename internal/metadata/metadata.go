// Package metadata looks up per-package metadata from the fdroiddata
// repository, with an in-memory cache in front of an on-disk YAML cache
// in front of the remote.
package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/memcache"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

// DefaultBaseURL serves raw metadata files from the fdroiddata repository.
const DefaultBaseURL = "https://gitlab.com/fdroid/fdroiddata/-/raw/master/metadata"

const (
	// DefaultRetryTotal is the number of retries after a retryable failure.
	DefaultRetryTotal = 3
	// DefaultBackoff is the base delay between retries; it doubles per attempt.
	DefaultBackoff = time.Second
	// DefaultRequestInterval is the minimum spacing between remote requests.
	DefaultRequestInterval = 100 * time.Millisecond
	// DefaultCacheSize bounds the in-memory metadata cache.
	DefaultCacheSize = 500
)

// retryStatuses are the upstream responses worth retrying.
var retryStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Document is the subset of an fdroiddata metadata file the dashboard
// consumes. A nil *Document means the package has no published metadata.
type Document struct {
	Name       string   `yaml:"Name"`
	Summary    string   `yaml:"Summary"`
	License    string   `yaml:"License"`
	AuthorName string   `yaml:"AuthorName"`
	Categories []string `yaml:"Categories"`
	SourceCode string   `yaml:"SourceCode"`
}

// CacheStats reports the state of the two cache layers.
type CacheStats struct {
	MemoryEntries int `json:"memory_entries"`
	DiskEntries   int `json:"disk_entries"`
}

// Client fetches package metadata with a bounded retry policy and a
// minimum spacing between remote requests.
type Client struct {
	baseURL  string
	cacheDir string
	client   *http.Client
	mem      *memcache.Cache[*Document]
	logger   *slog.Logger
	metrics  metrics.Recorder

	retryTotal int
	backoff    time.Duration
	interval   time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// Config carries Client construction knobs. Zero values fall back to the
// package defaults.
type Config struct {
	BaseURL    string
	CacheDir   string
	HTTPClient *http.Client
	CacheSize  int
	RetryTotal int
	Backoff    time.Duration
	Interval   time.Duration
}

// New creates a metadata Client. The on-disk cache directory is created
// if missing.
func New(cfg Config, logger *slog.Logger, recorder metrics.Recorder) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.RetryTotal == 0 {
		cfg.RetryTotal = DefaultRetryTotal
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultRequestInterval
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata cache dir: %w", err)
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		cacheDir:   cfg.CacheDir,
		client:     cfg.HTTPClient,
		mem:        memcache.New[*Document](cfg.CacheSize),
		logger:     logger.With("component", "metadata"),
		metrics:    recorder,
		retryTotal: cfg.RetryTotal,
		backoff:    cfg.Backoff,
		interval:   cfg.Interval,
	}, nil
}

// Get returns the metadata document for a package, or (nil, nil) when the
// package has none published. Results, including the no-metadata case,
// are cached in memory; successful fetches are also cached on disk.
func (c *Client) Get(ctx context.Context, packageID string) (*Document, error) {
	if doc, ok := c.mem.Get(packageID); ok {
		c.metrics.IncMetadataCacheHit()
		return doc, nil
	}
	c.metrics.IncMetadataCacheMiss()

	if doc, ok := c.loadDisk(packageID); ok {
		c.mem.Put(packageID, doc)
		return doc, nil
	}

	raw, found, err := c.fetchRemote(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !found {
		c.mem.Put(packageID, nil)
		return nil, nil
	}

	doc := &Document{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", packageID, err)
	}

	c.storeDisk(packageID, raw)
	c.mem.Put(packageID, doc)
	return doc, nil
}

// loadDisk reads a previously cached YAML file, if any.
func (c *Client) loadDisk(packageID string) (*Document, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	path, err := store.JoinUnder(c.cacheDir, packageID+".yml")
	if err != nil {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	doc := &Document{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		c.logger.Warn("discarding corrupt cached metadata", "package", packageID, "error", err)
		os.Remove(path)
		return nil, false
	}
	return doc, true
}

// storeDisk writes the raw YAML to the disk cache. Failures only log;
// the caller already has the document.
func (c *Client) storeDisk(packageID string, raw []byte) {
	if c.cacheDir == "" {
		return
	}
	path, err := store.JoinUnder(c.cacheDir, packageID+".yml")
	if err != nil {
		c.logger.Warn("not caching metadata", "package", packageID, "error", err)
		return
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		c.logger.Warn("metadata cache write failed", "package", packageID, "error", err)
	}
}

// fetchRemote downloads the metadata file, retrying retryable statuses
// with doubling backoff. found is false on 404.
func (c *Client) fetchRemote(ctx context.Context, packageID string) (raw []byte, found bool, err error) {
	url := c.baseURL + "/" + packageID + ".yml"

	delay := c.backoff
	for attempt := 0; ; attempt++ {
		c.throttle()

		raw, found, retryable, err := c.fetchOnce(ctx, url)
		if err == nil {
			return raw, found, nil
		}
		if !retryable || attempt >= c.retryTotal {
			return nil, false, fmt.Errorf("fetch metadata for %s: %w", packageID, err)
		}

		c.logger.Debug("retrying metadata fetch",
			"package", packageID, "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (c *Client) fetchOnce(ctx context.Context, url string) (raw []byte, found, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, true, err
		}
		return raw, true, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, false, nil
	default:
		_, retry := retryStatuses[resp.StatusCode]
		return nil, false, retry, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// throttle enforces the minimum interval between remote requests.
func (c *Client) throttle() {
	c.mu.Lock()
	wait := c.interval - time.Since(c.lastRequest)
	if wait > 0 {
		c.lastRequest = c.lastRequest.Add(c.interval)
	} else {
		c.lastRequest = time.Now()
	}
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// Categories returns the package's published categories, or nil when no
// metadata exists.
func (c *Client) Categories(ctx context.Context, packageID string) ([]string, error) {
	doc, err := c.Get(ctx, packageID)
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.Categories, nil
}

// PrimaryCategory returns the first published category, falling back to
// a name-pattern guess when the package has no metadata.
func (c *Client) PrimaryCategory(ctx context.Context, packageID string) (string, error) {
	categories, err := c.Categories(ctx, packageID)
	if err != nil {
		return "", err
	}
	if len(categories) > 0 {
		return categories[0], nil
	}
	return GuessCategory(packageID), nil
}

// BulkCategories resolves primary categories for many packages. Per-
// package failures degrade to the pattern fallback rather than failing
// the whole batch.
func (c *Client) BulkCategories(ctx context.Context, packageIDs []string) (map[string]string, error) {
	result := make(map[string]string, len(packageIDs))
	for _, id := range packageIDs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		category, err := c.PrimaryCategory(ctx, id)
		if err != nil {
			c.logger.Warn("category lookup failed", "package", id, "error", err)
			category = GuessCategory(id)
		}
		result[id] = category
	}
	return result, nil
}

// ClearCache drops the in-memory cache and deletes cached YAML files.
func (c *Client) ClearCache() error {
	c.mem.Clear()
	if c.cacheDir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.cacheDir)
	if err != nil {
		return fmt.Errorf("scan metadata cache: %w", err)
	}
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}
		path, err := store.JoinUnder(c.cacheDir, entry.Name())
		if err != nil {
			continue
		}
		if err := os.Remove(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats reports entry counts for both cache layers.
func (c *Client) Stats() CacheStats {
	stats := CacheStats{MemoryEntries: c.mem.Len()}
	if c.cacheDir == "" {
		return stats
	}
	entries, err := os.ReadDir(c.cacheDir)
	if err != nil {
		return stats
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yml") {
			stats.DiskEntries++
		}
	}
	return stats
}
