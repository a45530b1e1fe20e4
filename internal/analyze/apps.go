// Package analyze derives statistics from snapshot documents: daily
// summaries, time series, top-N rankings and per-entity rollups.
//
// Bulk operations over many dates favor availability over completeness:
// a date whose file is missing or corrupt is logged and skipped, and the
// caller gets a partial result. Single-date operations propagate errors.
package analyze

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/merge"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/pkgpath"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

// Apps analyzes app metrics aggregated across the source's HTTP servers.
type Apps struct {
	store   *store.Store
	servers []string
	paths   *pkgpath.Classifier
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewApps creates an app metrics analyzer over the given snapshot store.
func NewApps(st *store.Store, servers []string, classifier *pkgpath.Classifier, logger *slog.Logger, recorder metrics.Recorder) *Apps {
	if classifier == nil {
		classifier = pkgpath.New("", "")
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Apps{
		store:   st,
		servers: servers,
		paths:   classifier,
		logger:  logger.With("component", "analyze.apps"),
		metrics: recorder,
	}
}

// AvailableDates returns the sorted union of dates present across all
// server directories.
func (a *Apps) AvailableDates() ([]string, error) {
	return a.store.AvailableDates(a.servers...)
}

// LoadMerged loads and additively merges all server documents for one
// date. Servers with no file are omitted from the merge; a date where no
// server has a file at all reports ErrNotFound.
func (a *Apps) LoadMerged(date string) (*model.MergedDocument, error) {
	contribs := make([]merge.Contribution, 0, len(a.servers))
	for _, server := range a.servers {
		doc, err := a.store.Load(server, date)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		contribs = append(contribs, merge.Contribution{Server: server, Doc: doc})
	}

	if len(contribs) == 0 {
		return nil, fmt.Errorf("%w: no server data for %s", store.ErrNotFound, date)
	}
	return merge.Merge(contribs), nil
}

// DailySummary computes merged summary statistics for one date.
func (a *Apps) DailySummary(date string) (*model.AppDailySummary, error) {
	data, err := a.LoadMerged(date)
	if err != nil {
		return nil, err
	}

	return &model.AppDailySummary{
		Date:          date,
		TotalHits:     data.Hits,
		ServersActive: len(data.Servers),
		TotalErrors:   data.TotalErrorHits(),
		TopCountries:  topIntItems(data.HitsPerCountry, 10),
		TopPaths:      topCounterItems(data.Paths, 20),
		UniquePaths:   len(data.Paths),
	}, nil
}

// TimeSeries computes one row per date. Dates whose data cannot be
// loaded are skipped with a warning, never zero-filled. A nil date list
// means all available dates. Rows sort ascending by date.
func (a *Apps) TimeSeries(dates []string) ([]model.AppTimeSeriesRow, error) {
	defer a.observe(time.Now())

	dates, err := a.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	rows := make([]model.AppTimeSeriesRow, 0, len(dates))
	for _, date := range dates {
		summary, err := a.DailySummary(date)
		if err != nil {
			a.warnSkip(date, err)
			continue
		}
		rows = append(rows, model.AppTimeSeriesRow{
			Date:          date,
			TotalHits:     summary.TotalHits,
			ServersActive: summary.ServersActive,
			TotalErrors:   summary.TotalErrors,
			UniquePaths:   summary.UniquePaths,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// PathAnalysis rolls up request paths across the given dates.
func (a *Apps) PathAnalysis(dates []string) ([]model.Rollup, error) {
	defer a.observe(time.Now())

	dates, err := a.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	var records []entityHits
	for _, date := range dates {
		data, err := a.LoadMerged(date)
		if err != nil {
			a.warnSkip(date, err)
			continue
		}
		for path, stats := range data.Paths {
			if stats.Hits > 0 {
				records = append(records, entityHits{key: path, date: date, hits: stats.Hits})
			}
		}
	}

	return reduceRollups(records, true), nil
}

// CountryAnalysis rolls up hits by country across the given dates.
func (a *Apps) CountryAnalysis(dates []string) ([]model.Rollup, error) {
	defer a.observe(time.Now())

	dates, err := a.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	var records []entityHits
	for _, date := range dates {
		data, err := a.LoadMerged(date)
		if err != nil {
			a.warnSkip(date, err)
			continue
		}
		for country, hits := range data.HitsPerCountry {
			if hits > 0 {
				records = append(records, entityHits{key: country, date: date, hits: hits})
			}
		}
	}

	return reduceRollups(records, false), nil
}

// PackageAnalysis rolls up package info API requests across the given
// dates. The package id is the path suffix after the API prefix; empty
// or slash-containing names are discarded as malformed.
func (a *Apps) PackageAnalysis(dates []string) ([]model.Rollup, error) {
	defer a.observe(time.Now())

	dates, err := a.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	var records []entityHits
	for _, date := range dates {
		data, err := a.LoadMerged(date)
		if err != nil {
			a.warnSkip(date, err)
			continue
		}
		for path, stats := range data.Paths {
			event := a.paths.Classify(path)
			if event.Kind != pkgpath.KindAPIHit || stats.Hits <= 0 {
				continue
			}
			records = append(records, entityHits{key: event.Package, date: date, hits: stats.Hits})
		}
	}

	return reduceRollups(records, true), nil
}

// ServerComparison reports per-server (not merged) statistics for one
// date. A server with no file reports all-zero rather than being
// omitted, so the caller sees every server slot. This deliberately
// differs from the time-series skip policy.
func (a *Apps) ServerComparison(date string) ([]model.ServerStats, error) {
	rows := make([]model.ServerStats, 0, len(a.servers))
	for _, server := range a.servers {
		doc, err := a.store.Load(server, date)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				rows = append(rows, model.ServerStats{Server: server})
				continue
			}
			return nil, err
		}
		rows = append(rows, model.ServerStats{
			Server:      server,
			Hits:        doc.Hits,
			Errors:      doc.TotalErrorHits(),
			UniquePaths: len(doc.Paths),
			Countries:   len(doc.HitsPerCountry),
		})
	}
	return rows, nil
}

// PackageDownloads computes download statistics for one package across
// the given dates: per-version and per-country breakdowns from versioned
// APK download paths, plus info API hits. A date is active when either
// kind of event had positive hits on it.
func (a *Apps) PackageDownloads(packageID string, dates []string) (*model.PackageDownloads, error) {
	defer a.observe(time.Now())

	dates, err := a.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	result := &model.PackageDownloads{
		PackageID:   packageID,
		Versions:    make(map[string]int),
		Countries:   make(map[string]int),
		DatesActive: []string{},
	}

	for _, date := range dates {
		data, err := a.LoadMerged(date)
		if err != nil {
			a.warnSkip(date, err)
			continue
		}

		active := false
		for path, stats := range data.Paths {
			event := a.paths.Classify(path)
			switch event.Kind {
			case pkgpath.KindDownload:
				if event.Package != packageID {
					continue
				}
				result.TotalDownloads += stats.Hits
				result.Versions[event.Version] += stats.Hits
				if stats.Hits > 0 {
					active = true
				}
				for country, hits := range stats.HitsPerCountry {
					result.Countries[country] += hits
				}
			case pkgpath.KindAPIHit:
				if path != a.paths.APIPathFor(packageID) {
					continue
				}
				result.APIHits += stats.Hits
				if stats.Hits > 0 {
					active = true
				}
			}
		}
		if active {
			result.DatesActive = append(result.DatesActive, date)
		}
	}

	sort.Strings(result.DatesActive)
	return result, nil
}

// AllPackagesWithDownloads reports every package with APK downloads or
// API hits across the given dates, grouped by package id. Results sort
// descending by total downloads.
func (a *Apps) AllPackagesWithDownloads(dates []string) ([]model.PackageActivity, error) {
	defer a.observe(time.Now())

	dates, err := a.datesOrAll(dates)
	if err != nil {
		return nil, err
	}

	type packageAcc struct {
		downloads   int
		apiHits     int
		versions    map[string]struct{}
		datesActive map[string]struct{}
	}
	byID := make(map[string]*packageAcc)
	get := func(id string) *packageAcc {
		acc, ok := byID[id]
		if !ok {
			acc = &packageAcc{
				versions:    make(map[string]struct{}),
				datesActive: make(map[string]struct{}),
			}
			byID[id] = acc
		}
		return acc
	}

	for _, date := range dates {
		data, err := a.LoadMerged(date)
		if err != nil {
			a.warnSkip(date, err)
			continue
		}
		for path, stats := range data.Paths {
			if stats.Hits <= 0 {
				continue
			}
			event := a.paths.Classify(path)
			switch event.Kind {
			case pkgpath.KindDownload:
				acc := get(event.Package)
				acc.downloads += stats.Hits
				acc.versions[event.Version] = struct{}{}
				acc.datesActive[date] = struct{}{}
			case pkgpath.KindAPIHit:
				acc := get(event.Package)
				acc.apiHits += stats.Hits
				acc.datesActive[date] = struct{}{}
			}
		}
	}

	activities := make([]model.PackageActivity, 0, len(byID))
	for id, acc := range byID {
		activities = append(activities, model.PackageActivity{
			PackageID:      id,
			TotalDownloads: acc.downloads,
			TotalVersions:  len(acc.versions),
			APIHits:        acc.apiHits,
			DatesActive:    len(acc.datesActive),
		})
	}

	sort.Slice(activities, func(i, j int) bool {
		if activities[i].TotalDownloads != activities[j].TotalDownloads {
			return activities[i].TotalDownloads > activities[j].TotalDownloads
		}
		return activities[i].PackageID < activities[j].PackageID
	})
	return activities, nil
}

func (a *Apps) datesOrAll(dates []string) ([]string, error) {
	if dates != nil {
		return dates, nil
	}
	return a.AvailableDates()
}

func (a *Apps) warnSkip(date string, err error) {
	a.logger.Warn("skipping date", "date", date, "error", err)
}

func (a *Apps) observe(start time.Time) {
	a.metrics.ObserveAggregationDuration(time.Since(start))
}
