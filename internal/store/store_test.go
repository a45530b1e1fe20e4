package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStore_LoadSingleOrigin(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "2025-01-01.json", `{"hits": 42, "hitsPerCountry": {"US": 40}}`)

	s, err := New(dir, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := s.Load("", "2025-01-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Hits != 42 {
		t.Errorf("Hits = %d, want 42", doc.Hits)
	}
	if doc.HitsPerCountry["US"] != 40 {
		t.Errorf("HitsPerCountry = %v, want US:40", doc.HitsPerCountry)
	}
}

func TestStore_LoadPerServer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "http01.fdroid.net"), "2025-01-01.json", `{"hits": 7}`)

	s, err := New(dir, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := s.Load("http01.fdroid.net", "2025-01-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Hits != 7 {
		t.Errorf("Hits = %d, want 7", doc.Hits)
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir(), 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Load("", "2025-01-01")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load missing = %v, want ErrNotFound", err)
	}
}

func TestStore_LoadMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "2025-01-01.json", `{not json`)

	s, err := New(dir, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Load("", "2025-01-01")
	if !errors.Is(err, ErrMalformedData) {
		t.Errorf("Load malformed = %v, want ErrMalformedData", err)
	}
}

func TestStore_LoadCacheHitReturnsSameDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "2025-01-01.json", `{"hits": 1}`)

	rec := metrics.NewInMemory()
	s, err := New(dir, 10, rec)
	if err != nil {
		t.Fatal(err)
	}

	first, err := s.Load("", "2025-01-01")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Load("", "2025-01-01")
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Error("cache hit should return the identical document reference")
	}

	snap := rec.Snapshot()
	if snap.SnapshotCacheHits != 1 || snap.SnapshotCacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1",
			snap.SnapshotCacheHits, snap.SnapshotCacheMisses)
	}
}

func TestStore_DisabledCacheSameResult(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "2025-01-01.json", `{"hits": 5, "paths": {"/a": 3}}`)

	cached, err := New(dir, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	uncached, err := New(dir, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	a, err := cached.Load("", "2025-01-01")
	if err != nil {
		t.Fatal(err)
	}
	b, err := uncached.Load("", "2025-01-01")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Errorf("cache must not change Load results: %+v vs %+v", a, b)
	}
}

func TestStore_AvailableDates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "2025-01-08.json", `{}`)
	writeFile(t, dir, "2025-01-01.json", `{}`)
	writeFile(t, dir, SentinelFile, `{}`)
	writeFile(t, dir, "notes.json", `{}`)
	writeFile(t, dir, "readme.txt", "x")

	s, err := New(dir, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	dates, err := s.AvailableDates()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2025-01-01", "2025-01-08"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("AvailableDates = %v, want %v", dates, want)
	}
}

func TestStore_AvailableDatesUnionAcrossServers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "s1"), "2025-01-01.json", `{}`)
	writeFile(t, filepath.Join(dir, "s2"), "2025-01-08.json", `{}`)
	writeFile(t, filepath.Join(dir, "s2"), "2025-01-01.json", `{}`)

	s, err := New(dir, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	// s3 has no directory at all; that is not an error.
	dates, err := s.AvailableDates("s1", "s2", "s3")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2025-01-01", "2025-01-08"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("AvailableDates = %v, want %v", dates, want)
	}
}

func TestStore_WriteSnapshotOverwritesAndInvalidates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir, 10, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.WriteSnapshot("s1", "2025-01-01", []byte(`{"hits": 1}`)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	doc, err := s.Load("s1", "2025-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Hits != 1 {
		t.Fatalf("Hits = %d, want 1", doc.Hits)
	}

	// Overwrite; the cached document must not be served afterwards.
	if err := s.WriteSnapshot("s1", "2025-01-01", []byte(`{"hits": 2}`)); err != nil {
		t.Fatalf("WriteSnapshot overwrite: %v", err)
	}
	doc, err = s.Load("s1", "2025-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Hits != 2 {
		t.Errorf("Hits after overwrite = %d, want 2", doc.Hits)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "s1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("server dir has %d entries, want 1", len(entries))
	}
}

func TestValidDate(t *testing.T) {
	t.Parallel()

	valid := []string{"2025-01-01", "1999-12-31"}
	for _, d := range valid {
		if !ValidDate(d) {
			t.Errorf("ValidDate(%q) = false, want true", d)
		}
	}

	invalid := []string{"", "2025-1-1", "2025-13-01", "20250101", "not-a-date", "2025-01-01x"}
	for _, d := range invalid {
		if ValidDate(d) {
			t.Errorf("ValidDate(%q) = true, want false", d)
		}
	}
}
