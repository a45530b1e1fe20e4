// Package main is the per-package summary export CLI. It picks one
// snapshot per month for the last few months, fetches whatever is
// missing locally, and writes one JSON artifact per package for the
// badge service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/analyze"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/config"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/export"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/fetch"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

func main() {
	var (
		outDir = flag.String("out", "", "output directory (default PROCESSED_DIR)")
		months = flag.Int("months", 0, "number of months to cover (default MONTHLY_SNAPSHOT_COUNT)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = cfg.ProcessedDir
	}
	if *months == 0 {
		*months = cfg.MonthlySnapshotCount
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	recorder := metrics.NewInMemory()

	appStore, err := store.New(cfg.AppDataDir, cfg.AppCacheSize, recorder)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open app store:", err)
		os.Exit(1)
	}
	searchStore, err := store.New(cfg.SearchDataDir, cfg.SearchCacheSize, recorder)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open search store:", err)
		os.Exit(1)
	}

	servers := cfg.GetAppServers()
	apps := analyze.NewApps(appStore, servers, nil, logger, recorder)
	search := analyze.NewSearch(searchStore, logger, recorder)

	httpClient := fetch.NewHTTPClient(cfg.RequestTimeout)
	appsFetcher := fetch.New(appStore, httpClient, logger, recorder, cfg.FetchBatchSize, cfg.MaxRangeDays)
	searchFetcher := fetch.New(searchStore, httpClient, logger, recorder, cfg.FetchBatchSize, cfg.MaxRangeDays)

	extractor, err := export.New(
		apps, search,
		appsFetcher, searchFetcher,
		fetch.AppsSource(cfg.AppsBaseURL, servers),
		fetch.SearchSource(cfg.SearchBaseURL),
		*outDir, *months, logger,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "export:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := extractor.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "export:", err)
		os.Exit(1)
	}

	fmt.Printf("exported %d of %d packages for dates %v into %s\n", report.Written, report.Packages, report.Dates, *outDir)
	for _, e := range report.Errors {
		fmt.Println("  error:", e)
	}
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
