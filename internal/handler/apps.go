package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/analyze"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/cache"
)

// AppsHandler serves aggregated app metrics.
type AppsHandler struct {
	analyzer *analyze.Apps
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewAppsHandler creates an AppsHandler. cacheClient may be nil; response
// caching is then skipped.
func NewAppsHandler(analyzer *analyze.Apps, cacheClient *cache.Cache, logger *slog.Logger) *AppsHandler {
	return &AppsHandler{
		analyzer: analyzer,
		cache:    cacheClient,
		logger:   logger.With("component", "handler.apps"),
	}
}

// dates resolves the requested date window against locally available
// snapshots. Nil means "everything".
func (h *AppsHandler) dates(r *http.Request) ([]string, bool, error) {
	start, end, err := dateRangeParams(r)
	if err != nil {
		return nil, false, err
	}
	if start == "" && end == "" {
		return nil, false, nil
	}
	all, err := h.analyzer.AvailableDates()
	if err != nil {
		return nil, false, err
	}
	return filterDates(all, start, end), true, nil
}

// dateParam resolves an explicit ?date= parameter, defaulting to the most
// recent available date.
func (h *AppsHandler) dateParam(r *http.Request) (string, error) {
	if date := r.URL.Query().Get("date"); date != "" {
		return date, nil
	}
	dates, err := h.analyzer.AvailableDates()
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		return "", fmt.Errorf("no snapshot data available")
	}
	return dates[len(dates)-1], nil
}

// Dates lists locally available snapshot dates.
// GET /api/v1/apps/dates
func (h *AppsHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.analyzer.AvailableDates()
	if err != nil {
		h.logger.Error("list dates failed", "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// Summary returns the merged daily summary for one date.
// GET /api/v1/apps/summary?date=YYYY-MM-DD
func (h *AppsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no snapshot data available")
		return
	}

	summary, err := h.analyzer.DailySummary(date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// TimeSeries returns per-date totals over a date window.
// GET /api/v1/apps/timeseries?start=&end=
func (h *AppsHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "apps:timeseries", func(dates []string) (any, error) {
		return h.analyzer.TimeSeries(dates)
	})
}

// Paths returns path rollups over a date window.
// GET /api/v1/apps/paths?start=&end=
func (h *AppsHandler) Paths(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "apps:paths", func(dates []string) (any, error) {
		return h.analyzer.PathAnalysis(dates)
	})
}

// Countries returns country rollups over a date window.
// GET /api/v1/apps/countries?start=&end=
func (h *AppsHandler) Countries(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "apps:countries", func(dates []string) (any, error) {
		return h.analyzer.CountryAnalysis(dates)
	})
}

// Packages returns package API lookup rollups over a date window.
// GET /api/v1/apps/packages?start=&end=
func (h *AppsHandler) Packages(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "apps:packages", func(dates []string) (any, error) {
		return h.analyzer.PackageAnalysis(dates)
	})
}

// Servers compares per-server activity for one date.
// GET /api/v1/apps/servers?date=YYYY-MM-DD
func (h *AppsHandler) Servers(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no snapshot data available")
		return
	}

	rows, err := h.analyzer.ServerComparison(date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "servers": rows})
}

// Downloads lists every package with download or API activity.
// GET /api/v1/apps/downloads?start=&end=
func (h *AppsHandler) Downloads(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "apps:downloads", func(dates []string) (any, error) {
		return h.analyzer.AllPackagesWithDownloads(dates)
	})
}

// PackageDownloads breaks down one package's downloads.
// GET /api/v1/apps/downloads/{packageID}?start=&end=
func (h *AppsHandler) PackageDownloads(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "packageID")
	if packageID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "package id required")
		return
	}

	dates, _, err := h.dates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "start/end must be YYYY-MM-DD")
		return
	}

	result, err := h.analyzer.PackageDownloads(packageID, dates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// rollupResponse runs one windowed aggregation with Redis response
// caching. The cache key folds in the resolved window so distinct
// windows never collide.
func (h *AppsHandler) rollupResponse(w http.ResponseWriter, r *http.Request, name string, compute func(dates []string) (any, error)) {
	dates, windowed, err := h.dates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "start/end must be YYYY-MM-DD")
		return
	}

	key := cacheKey(name, r, windowed, dates)
	if h.cache != nil {
		var cached json.RawMessage
		if h.cache.GetResult(r.Context(), key, &cached) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	result, err := compute(dates)
	if err != nil {
		h.logger.Error("aggregation failed", "endpoint", name, "error", err)
		writeDomainError(w, err)
		return
	}

	response := map[string]any{"results": result}
	if h.cache != nil {
		h.cache.SetResult(r.Context(), key, response, 0)
	}
	writeJSON(w, http.StatusOK, response)
}

func cacheKey(name string, r *http.Request, windowed bool, dates []string) string {
	if !windowed {
		return name + ":all"
	}
	if len(dates) == 0 {
		return name + ":empty"
	}
	return fmt.Sprintf("%s:%s:%s:%d", name, dates[0], dates[len(dates)-1], len(dates))
}
