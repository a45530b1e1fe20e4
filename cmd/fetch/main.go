// Package main is the snapshot fetch CLI. It downloads remote metrics
// snapshots for a date range into the local store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/config"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/fetch"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

func main() {
	var (
		sourceName = flag.String("source", "apps", "source to fetch: apps or search")
		start      = flag.String("start", "", "first date to fetch (YYYY-MM-DD)")
		end        = flag.String("end", "", "last date to fetch (YYYY-MM-DD)")
		month      = flag.String("month", "", "fetch a whole month (YYYY-MM); overrides -start/-end")
		missing    = flag.Bool("missing", false, "only print remote dates absent locally, fetch nothing")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	recorder := metrics.NewInMemory()

	dataDir, cacheSize := cfg.AppDataDir, cfg.AppCacheSize
	var source fetch.Source
	switch *sourceName {
	case "apps":
		source = fetch.AppsSource(cfg.AppsBaseURL, cfg.GetAppServers())
	case "search":
		source = fetch.SearchSource(cfg.SearchBaseURL)
		dataDir, cacheSize = cfg.SearchDataDir, cfg.SearchCacheSize
	default:
		fmt.Fprintln(os.Stderr, "source must be \"apps\" or \"search\"")
		os.Exit(2)
	}

	st, err := store.New(dataDir, cacheSize, recorder)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}
	fetcher := fetch.New(st, fetch.NewHTTPClient(cfg.RequestTimeout), logger, recorder, cfg.FetchBatchSize, cfg.MaxRangeDays)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *missing {
		dates, err := fetcher.MissingDates(ctx, source)
		if err != nil {
			fmt.Fprintln(os.Stderr, "missing dates:", err)
			os.Exit(1)
		}
		for _, d := range dates {
			fmt.Println(d)
		}
		return
	}

	first, last, err := resolveRange(*start, *end, *month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts := fetch.Options{
		Status: func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		},
	}

	report, err := fetcher.FetchRange(ctx, source, first, last, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		os.Exit(1)
	}

	fmt.Printf("run %s: %d files, %d ok, %d failed\n", report.ID, report.TotalFiles, report.Successful, report.Failed)
	for _, e := range report.Errors {
		fmt.Println("  error:", e)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// resolveRange turns -month into an inclusive first/last day pair, or
// passes -start/-end through.
func resolveRange(start, end, month string) (string, string, error) {
	if month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			return "", "", fmt.Errorf("-month must be YYYY-MM")
		}
		first := t.Format(store.DateFormat)
		last := t.AddDate(0, 1, -1).Format(store.DateFormat)
		return first, last, nil
	}
	if start == "" || end == "" {
		return "", "", fmt.Errorf("either -month or both -start and -end are required")
	}
	return start, end, nil
}
