package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/testutil"
)

const sampleYAML = `Name: Example App
Summary: An example
License: GPL-3.0-only
AuthorName: Example Dev
Categories:
  - Internet
  - Multimedia
SourceCode: https://example.com/src
`

func newClient(t *testing.T, baseURL string, recorder metrics.Recorder) *Client {
	t.Helper()

	c, err := New(Config{
		BaseURL:  baseURL,
		CacheDir: t.TempDir(),
		Backoff:  time.Millisecond,
		Interval: time.Nanosecond,
	}, testutil.DiscardLogger(), recorder)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGet(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/org.example.app.yml" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sampleYAML))
	}))
	defer srv.Close()

	recorder := metrics.NewInMemory()
	c := newClient(t, srv.URL, recorder)

	doc, err := c.Get(context.Background(), "org.example.app")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Name != "Example App" || doc.License != "GPL-3.0-only" {
		t.Errorf("doc = %+v", doc)
	}
	if !reflect.DeepEqual(doc.Categories, []string{"Internet", "Multimedia"}) {
		t.Errorf("Categories = %v", doc.Categories)
	}

	// Second lookup is served from memory.
	if _, err := c.Get(context.Background(), "org.example.app"); err != nil {
		t.Fatalf("Get cached: %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("remote requests = %d, want 1", got)
	}
	snap := recorder.Snapshot()
	if snap.MetadataCacheHits != 1 || snap.MetadataCacheMisses != 1 {
		t.Errorf("cache counters = %d/%d, want 1/1", snap.MetadataCacheHits, snap.MetadataCacheMisses)
	}
}

func TestGet_NotFoundMeansNoMetadata(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	doc, err := c.Get(context.Background(), "org.gone.app")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc != nil {
		t.Errorf("doc = %+v, want nil", doc)
	}

	// The no-metadata answer is cached too.
	if _, err := c.Get(context.Background(), "org.gone.app"); err != nil {
		t.Fatalf("Get cached: %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("remote requests = %d, want 1", got)
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleYAML))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	doc, err := c.Get(context.Background(), "org.example.app")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc == nil || doc.Name != "Example App" {
		t.Errorf("doc = %+v", doc)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("remote requests = %d, want 3", got)
	}
}

func TestGet_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	if _, err := c.Get(context.Background(), "org.example.app"); err == nil {
		t.Fatal("Get should fail after exhausting retries")
	}
	// Initial attempt plus DefaultRetryTotal retries.
	if got := requests.Load(); got != int64(DefaultRetryTotal)+1 {
		t.Errorf("remote requests = %d, want %d", got, DefaultRetryTotal+1)
	}
}

func TestGet_NonRetryableStatusFailsFast(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	if _, err := c.Get(context.Background(), "org.example.app"); err == nil {
		t.Fatal("Get should fail")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("remote requests = %d, want 1", got)
	}
}

func TestGet_DiskCacheSurvivesMemoryClear(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(sampleYAML))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	if _, err := c.Get(context.Background(), "org.example.app"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.mem.Clear()

	doc, err := c.Get(context.Background(), "org.example.app")
	if err != nil {
		t.Fatalf("Get from disk: %v", err)
	}
	if doc == nil || doc.Name != "Example App" {
		t.Errorf("doc = %+v", doc)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("remote requests = %d, want 1", got)
	}
}

func TestGet_RejectsTraversalPackageID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleYAML))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	// Lookup succeeds but nothing may be written outside the cache dir.
	if _, err := c.Get(context.Background(), "../../etc/evil"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.cacheDir, "..", "..", "etc")); !os.IsNotExist(err) {
		t.Error("traversal escaped the cache dir")
	}
}

func TestPrimaryCategory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/org.example.app.yml" {
			w.Write([]byte(sampleYAML))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	got, err := c.PrimaryCategory(context.Background(), "org.example.app")
	if err != nil {
		t.Fatalf("PrimaryCategory: %v", err)
	}
	if got != "Internet" {
		t.Errorf("category = %q, want Internet", got)
	}

	// No metadata falls back to the pattern guess.
	got, err = c.PrimaryCategory(context.Background(), "com.foo.supergame")
	if err != nil {
		t.Fatalf("PrimaryCategory fallback: %v", err)
	}
	if got != "Games" {
		t.Errorf("fallback category = %q, want Games", got)
	}
}

func TestBulkCategories(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/org.example.app.yml" {
			w.Write([]byte(sampleYAML))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	got, err := c.BulkCategories(context.Background(), []string{"org.example.app", "com.foo.mapviewer"})
	if err != nil {
		t.Fatalf("BulkCategories: %v", err)
	}
	want := map[string]string{
		"org.example.app": "Internet",
		"com.foo.mapviewer": "Navigation",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("categories = %v, want %v", got, want)
	}
}

func TestClearCacheAndStats(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleYAML))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil)

	if _, err := c.Get(context.Background(), "org.example.app"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	stats := c.Stats()
	if stats.MemoryEntries != 1 || stats.DiskEntries != 1 {
		t.Errorf("stats = %+v, want 1/1", stats)
	}

	if err := c.ClearCache(); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	stats = c.Stats()
	if stats.MemoryEntries != 0 || stats.DiskEntries != 0 {
		t.Errorf("stats after clear = %+v, want 0/0", stats)
	}
}

func TestGuessCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want string
	}{
		{"com.foo.supergame", "Games"},
		{"org.bar.mapviewer", "Navigation"},
		{"io.baz.passwordsafe", "Security"},
		{"org.qux.unclassifiable", FallbackCategory},
	}
	for _, tt := range tests {
		if got := GuessCategory(tt.id); got != tt.want {
			t.Errorf("GuessCategory(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
