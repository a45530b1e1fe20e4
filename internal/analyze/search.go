package analyze

import (
	"log/slog"
	"sort"
	"time"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

// Search analyzes search metrics. The search source is single-origin, so
// documents load directly without a merge step, and they carry query and
// language counters the app source does not.
type Search struct {
	store   *store.Store
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewSearch creates a search metrics analyzer over the given store.
func NewSearch(st *store.Store, logger *slog.Logger, recorder metrics.Recorder) *Search {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Search{
		store:   st,
		logger:  logger.With("component", "analyze.search"),
		metrics: recorder,
	}
}

// AvailableDates returns the sorted snapshot dates in the search store.
func (s *Search) AvailableDates() ([]string, error) {
	return s.store.AvailableDates()
}

// Load reads the search document for one date.
func (s *Search) Load(date string) (*model.Document, error) {
	return s.store.Load("", date)
}

// DailySummary computes summary statistics for one date, including the
// language breakdown only search documents carry.
func (s *Search) DailySummary(date string) (*model.SearchDailySummary, error) {
	doc, err := s.Load(date)
	if err != nil {
		return nil, err
	}

	return &model.SearchDailySummary{
		Date:          date,
		TotalHits:     doc.Hits,
		UniqueQueries: len(doc.Queries),
		TotalErrors:   doc.TotalErrorHits(),
		TopCountries:  topIntItems(doc.HitsPerCountry, 10),
		TopLanguages:  topIntItems(doc.HitsPerLanguage, 10),
		TopQueries:    topCounterItems(doc.Queries, 20),
		TopPaths:      topCounterItems(doc.Paths, 20),
	}, nil
}

// TimeSeries computes one row per date. Dates whose document cannot be
// loaded are skipped with a warning. A nil date list means all available
// dates. Rows sort ascending by date.
func (s *Search) TimeSeries(dates []string) ([]model.SearchTimeSeriesRow, error) {
	defer s.observe(time.Now())

	dates, err := s.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	rows := make([]model.SearchTimeSeriesRow, 0, len(dates))
	for _, date := range dates {
		doc, err := s.Load(date)
		if err != nil {
			s.warnSkip(date, err)
			continue
		}
		rows = append(rows, model.SearchTimeSeriesRow{
			Date:          date,
			TotalHits:     doc.Hits,
			UniqueQueries: len(doc.Queries),
			TotalErrors:   doc.TotalErrorHits(),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// QueryAnalysis rolls up search query terms across the given dates.
func (s *Search) QueryAnalysis(dates []string) ([]model.Rollup, error) {
	defer s.observe(time.Now())

	dates, err := s.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	var records []entityHits
	for _, date := range dates {
		doc, err := s.Load(date)
		if err != nil {
			s.warnSkip(date, err)
			continue
		}
		for query, stats := range doc.Queries {
			if stats.Hits > 0 {
				records = append(records, entityHits{key: query, date: date, hits: stats.Hits})
			}
		}
	}

	return reduceRollups(records, true), nil
}

// CountryAnalysis rolls up search hits by country across the given dates.
func (s *Search) CountryAnalysis(dates []string) ([]model.Rollup, error) {
	defer s.observe(time.Now())

	dates, err := s.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	var records []entityHits
	for _, date := range dates {
		doc, err := s.Load(date)
		if err != nil {
			s.warnSkip(date, err)
			continue
		}
		for country, hits := range doc.HitsPerCountry {
			if hits > 0 {
				records = append(records, entityHits{key: country, date: date, hits: hits})
			}
		}
	}

	return reduceRollups(records, false), nil
}

// QueryCountForPackage sums hits for search queries that exactly match
// the package id across the given dates.
func (s *Search) QueryCountForPackage(packageID string, dates []string) (int, error) {
	dates, err := s.datesOrAll(dates)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, date := range dates {
		doc, err := s.Load(date)
		if err != nil {
			s.warnSkip(date, err)
			continue
		}
		if stats, ok := doc.Queries[packageID]; ok {
			total += stats.Hits
		}
	}
	return total, nil
}

func (s *Search) datesOrAll(dates []string) ([]string, error) {
	if dates != nil {
		return dates, nil
	}
	return s.AvailableDates()
}

func (s *Search) warnSkip(date string, err error) {
	s.logger.Warn("skipping date", "date", date, "error", err)
}

func (s *Search) observe(start time.Time) {
	s.metrics.ObserveAggregationDuration(time.Since(start))
}
