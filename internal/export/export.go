// Package export writes derived per-package artifacts for the external
// badge-rendering service.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/analyze"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/fetch"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

// DefaultMonths is how many recent months of snapshots feed the export.
const DefaultMonths = 4

// Report summarizes one export run.
type Report struct {
	Dates    []string `json:"dates"`
	Packages int      `json:"packages"`
	Written  int      `json:"written"`
	Errors   []string `json:"errors,omitempty"`
}

// Extractor aggregates recent app and search activity into one JSON
// artifact per package.
type Extractor struct {
	apps          *analyze.Apps
	search        *analyze.Search
	appsFetcher   *fetch.Fetcher
	searchFetcher *fetch.Fetcher
	appsSource    fetch.Source
	searchSource  fetch.Source
	outDir        string
	months        int
	logger        *slog.Logger
}

// New creates an Extractor writing artifacts into outDir, creating it if
// missing. The two fetchers write into the analyzers' respective stores.
// A non-positive months falls back to DefaultMonths.
func New(apps *analyze.Apps, search *analyze.Search, appsFetcher, searchFetcher *fetch.Fetcher, appsSource, searchSource fetch.Source, outDir string, months int, logger *slog.Logger) (*Extractor, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Extractor{
		apps:          apps,
		search:        search,
		appsFetcher:   appsFetcher,
		searchFetcher: searchFetcher,
		appsSource:    appsSource,
		searchSource:  searchSource,
		outDir:        outDir,
		months:        months,
		logger:        logger.With("component", "export"),
	}, nil
}

// LastNMonthsDates returns the most recent date from each of the last n
// distinct months present in dates, ascending. Malformed entries are
// ignored.
func LastNMonthsDates(dates []string, n int) []string {
	if n <= 0 {
		return nil
	}

	latest := make(map[string]string) // month -> latest date
	for _, date := range dates {
		if !store.ValidDate(date) {
			continue
		}
		month := date[:7]
		if date > latest[month] {
			latest[month] = date
		}
	}

	months := make([]string, 0, len(latest))
	for month := range latest {
		months = append(months, month)
	}
	sort.Strings(months)
	if len(months) > n {
		months = months[len(months)-n:]
	}

	picked := make([]string, 0, len(months))
	for _, month := range months {
		picked = append(picked, latest[month])
	}
	return picked
}

// Run performs one export: find the most recent common snapshot date per
// month for both sources, fetch those snapshots, aggregate per-package
// downloads and search interest, and write one artifact per package.
func (e *Extractor) Run(ctx context.Context) (*Report, error) {
	dates, err := e.selectDates(ctx)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no common snapshot dates available")
	}
	e.logger.Info("export started", "dates", dates)

	targets := []struct {
		fetcher *fetch.Fetcher
		source  fetch.Source
	}{
		{e.appsFetcher, e.appsSource},
		{e.searchFetcher, e.searchSource},
	}
	for _, target := range targets {
		for _, date := range dates {
			if _, err := target.fetcher.FetchRange(ctx, target.source, date, date, fetch.Options{}); err != nil {
				return nil, fmt.Errorf("fetch %s snapshots for %s: %w", target.source.Name, date, err)
			}
		}
	}

	packages, err := e.apps.AllPackagesWithDownloads(dates)
	if err != nil {
		return nil, fmt.Errorf("aggregate packages: %w", err)
	}

	report := &Report{Dates: dates, Packages: len(packages)}
	for _, pkg := range packages {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		summary, err := e.summarize(pkg, dates)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", pkg.PackageID, err))
			continue
		}
		if err := e.write(summary); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", pkg.PackageID, err))
			continue
		}
		report.Written++
	}

	e.logger.Info("export finished",
		"packages", report.Packages, "written", report.Written, "errors", len(report.Errors))
	return report, nil
}

// selectDates picks the most recent common date per month across both
// sources' remote indexes.
func (e *Extractor) selectDates(ctx context.Context) ([]string, error) {
	appDates, err := e.appsFetcher.RemoteDates(ctx, e.appsSource)
	if err != nil {
		return nil, fmt.Errorf("list app snapshot dates: %w", err)
	}
	searchDates, err := e.searchFetcher.RemoteDates(ctx, e.searchSource)
	if err != nil {
		return nil, fmt.Errorf("list search snapshot dates: %w", err)
	}

	inSearch := make(map[string]struct{}, len(searchDates))
	for _, d := range searchDates {
		inSearch[d] = struct{}{}
	}
	common := make([]string, 0, len(appDates))
	for _, d := range appDates {
		if _, ok := inSearch[d]; ok {
			common = append(common, d)
		}
	}

	return LastNMonthsDates(common, e.months), nil
}

// summarize builds the badge artifact for one package.
func (e *Extractor) summarize(pkg model.PackageActivity, dates []string) (*model.PackageSummary, error) {
	downloads, err := e.apps.PackageDownloads(pkg.PackageID, dates)
	if err != nil {
		return nil, fmt.Errorf("package downloads: %w", err)
	}
	searchCount, err := e.search.QueryCountForPackage(pkg.PackageID, dates)
	if err != nil {
		return nil, fmt.Errorf("search count: %w", err)
	}

	return &model.PackageSummary{
		PackageID:      pkg.PackageID,
		TotalDownloads: downloads.TotalDownloads,
		APIHits:        downloads.APIHits,
		Versions:       len(downloads.Versions),
		SearchCount:    searchCount,
	}, nil
}

// write stores one artifact as {package_id}.json, guarded against path
// escape through hostile package ids.
func (e *Extractor) write(summary *model.PackageSummary) error {
	path, err := store.JoinUnder(e.outDir, summary.PackageID+".json")
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
