package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/cache"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/fetch"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metadata"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
)

// Fetcher is the slice of the fetch pipeline the admin surface needs.
type Fetcher interface {
	FetchRange(ctx context.Context, source fetch.Source, start, end string, opts fetch.Options) (*model.FetchReport, error)
	CheckAvailability(ctx context.Context, source fetch.Source) (*model.Availability, error)
}

// AdminHandler exposes operational endpoints: triggering fetch runs,
// inspecting snapshot availability, and clearing the metadata cache.
// All routes are expected to sit behind bearer-token auth.
type AdminHandler struct {
	appsFetcher   Fetcher
	searchFetcher Fetcher
	appsSource    fetch.Source
	searchSource  fetch.Source
	cache         *cache.Cache
	metadata      *metadata.Client
	logger        *slog.Logger
}

// NewAdminHandler creates an AdminHandler. cacheClient and meta may be nil.
func NewAdminHandler(
	appsFetcher, searchFetcher Fetcher,
	appsSource, searchSource fetch.Source,
	cacheClient *cache.Cache,
	meta *metadata.Client,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		appsFetcher:   appsFetcher,
		searchFetcher: searchFetcher,
		appsSource:    appsSource,
		searchSource:  searchSource,
		cache:         cacheClient,
		metadata:      meta,
		logger:        logger.With("component", "handler.admin"),
	}
}

type fetchRequest struct {
	Source string `json:"source"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func (h *AdminHandler) resolveSource(name string) (Fetcher, fetch.Source, bool) {
	switch name {
	case "apps":
		return h.appsFetcher, h.appsSource, true
	case "search":
		return h.searchFetcher, h.searchSource, true
	}
	return nil, fetch.Source{}, false
}

// Fetch triggers a synchronous fetch run for one source and date range.
// Cached aggregation results are invalidated after new snapshots land.
// POST /admin/fetch
func (h *AdminHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	fetcher, source, ok := h.resolveSource(req.Source)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_SOURCE", "source must be \"apps\" or \"search\"")
		return
	}

	h.logger.Info("fetch run requested",
		"source", req.Source,
		"start", req.Start,
		"end", req.End,
	)

	report, err := fetcher.FetchRange(r.Context(), source, req.Start, req.End, fetch.Options{})
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrInvalidRange):
			writeError(w, http.StatusBadRequest, "INVALID_DATE", "start/end must be YYYY-MM-DD with start <= end")
		case errors.Is(err, fetch.ErrRangeTooLarge):
			writeError(w, http.StatusBadRequest, "RANGE_TOO_LARGE", "requested date range exceeds the maximum")
		default:
			h.logger.Error("fetch run failed", "source", req.Source, "error", err)
			writeError(w, http.StatusBadGateway, "UPSTREAM", "fetch run failed")
		}
		return
	}

	if report.Successful > 0 && h.cache != nil {
		if err := h.cache.InvalidateResults(r.Context()); err != nil {
			h.logger.Warn("result cache invalidation failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// Availability reports local versus remote snapshot presence for one
// source.
// GET /admin/availability?source=apps|search
func (h *AdminHandler) Availability(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("source")
	if name == "" {
		name = "apps"
	}
	fetcher, source, ok := h.resolveSource(name)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_SOURCE", "source must be \"apps\" or \"search\"")
		return
	}

	availability, err := fetcher.CheckAvailability(r.Context(), source)
	if err != nil {
		h.logger.Error("availability check failed", "source", name, "error", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM", "availability check failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": name, "availability": availability})
}

// ClearMetadataCache drops the in-memory and on-disk metadata caches.
// POST /admin/metadata/clear
func (h *AdminHandler) ClearMetadataCache(w http.ResponseWriter, r *http.Request) {
	if h.metadata == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "metadata lookups not configured")
		return
	}

	before := h.metadata.Stats()
	if err := h.metadata.ClearCache(); err != nil {
		h.logger.Error("metadata cache clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "metadata cache clear failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cleared_memory_entries": before.MemoryEntries,
		"cleared_disk_entries":   before.DiskEntries,
	})
}
