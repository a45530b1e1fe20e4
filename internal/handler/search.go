package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/analyze"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/cache"
)

// SearchHandler serves aggregated search metrics.
type SearchHandler struct {
	analyzer *analyze.Search
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewSearchHandler creates a SearchHandler. cacheClient may be nil.
func NewSearchHandler(analyzer *analyze.Search, cacheClient *cache.Cache, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		analyzer: analyzer,
		cache:    cacheClient,
		logger:   logger.With("component", "handler.search"),
	}
}

func (h *SearchHandler) dates(r *http.Request) ([]string, bool, error) {
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

// Dates lists locally available search snapshot dates.
// GET /api/v1/search/dates
func (h *SearchHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.analyzer.AvailableDates()
	if err != nil {
		h.logger.Error("list dates failed", "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// Summary returns the daily search summary for one date.
// GET /api/v1/search/summary?date=YYYY-MM-DD
func (h *SearchHandler) Summary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		dates, err := h.analyzer.AvailableDates()
		if err != nil || len(dates) == 0 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "no snapshot data available")
			return
		}
		date = dates[len(dates)-1]
	}

	summary, err := h.analyzer.DailySummary(date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// TimeSeries returns per-date search totals over a date window.
// GET /api/v1/search/timeseries?start=&end=
func (h *SearchHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "search:timeseries", func(dates []string) (any, error) {
		return h.analyzer.TimeSeries(dates)
	})
}

// Queries returns query-term rollups over a date window.
// GET /api/v1/search/queries?start=&end=
func (h *SearchHandler) Queries(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "search:queries", func(dates []string) (any, error) {
		return h.analyzer.QueryAnalysis(dates)
	})
}

// Countries returns country rollups over a date window.
// GET /api/v1/search/countries?start=&end=
func (h *SearchHandler) Countries(w http.ResponseWriter, r *http.Request) {
	h.rollupResponse(w, r, "search:countries", func(dates []string) (any, error) {
		return h.analyzer.CountryAnalysis(dates)
	})
}

func (h *SearchHandler) rollupResponse(w http.ResponseWriter, r *http.Request, name string, compute func(dates []string) (any, error)) {
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
