// Package testutil provides snapshot fixtures and helpers shared across
// package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
)

// DiscardLogger returns a logger that drops all records.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// WriteSnapshot marshals doc and writes it as {dir}/{server}/{date}.json,
// creating the server directory as needed. Pass an empty server for
// single-origin layouts.
func WriteSnapshot(t testing.TB, dir, server, date string, doc *model.Document) {
	t.Helper()

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	WriteRawSnapshot(t, dir, server, date, raw)
}

// WriteRawSnapshot writes raw bytes as a snapshot file, bypassing any
// marshalling. Useful for malformed-data fixtures.
func WriteRawSnapshot(t testing.TB, dir, server, date string, raw []byte) {
	t.Helper()

	target := filepath.Join(dir, server)
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("create server dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, date+".json"), raw, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}

// NewTestDocument creates a document with a deterministic shape: the
// given total hits, one US-heavy country split and a single path entry.
func NewTestDocument(t testing.TB, hits int) *model.Document {
	t.Helper()
	return &model.Document{
		Hits:           hits,
		HitsPerCountry: map[string]int{"US": hits},
		Paths: map[string]model.CounterStats{
			"/fdroid/repo/index-v2.json": {Hits: hits, HitsPerCountry: map[string]int{"US": hits}},
		},
	}
}

// DownloadPath builds a versioned APK request path for fixtures.
func DownloadPath(packageID, version string) string {
	return fmt.Sprintf("/repo/%s_%s.apk", packageID, version)
}
