// Package main is the entrypoint for the F-Droid metrics dashboard API
// server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/analyze"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/cache"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/config"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/fetch"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/handler"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metadata"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/middleware"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/server"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize metrics
	recorder := metrics.NewInMemory()

	// Initialize Redis cache (optional)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	} else {
		logger.Info("REDIS_URL not set, response caching disabled")
	}

	// Initialize snapshot stores
	appStore, err := store.New(cfg.AppDataDir, cfg.AppCacheSize, recorder)
	if err != nil {
		logger.Error("failed to open app snapshot store", "dir", cfg.AppDataDir, "error", err)
		os.Exit(1)
	}
	searchStore, err := store.New(cfg.SearchDataDir, cfg.SearchCacheSize, recorder)
	if err != nil {
		logger.Error("failed to open search snapshot store", "dir", cfg.SearchDataDir, "error", err)
		os.Exit(1)
	}

	// Initialize analyzers and fetch pipeline
	servers := cfg.GetAppServers()
	appsAnalyzer := analyze.NewApps(appStore, servers, nil, logger, recorder)
	searchAnalyzer := analyze.NewSearch(searchStore, logger, recorder)

	httpClient := fetch.NewHTTPClient(cfg.RequestTimeout)
	appsFetcher := fetch.New(appStore, httpClient, logger, recorder, cfg.FetchBatchSize, cfg.MaxRangeDays)
	searchFetcher := fetch.New(searchStore, httpClient, logger, recorder, cfg.FetchBatchSize, cfg.MaxRangeDays)
	appsSource := fetch.AppsSource(cfg.AppsBaseURL, servers)
	searchSource := fetch.SearchSource(cfg.SearchBaseURL)

	// Initialize metadata client
	metadataClient, err := metadata.New(metadata.Config{
		BaseURL:    cfg.MetadataBaseURL,
		CacheDir:   cfg.MetadataCacheDir,
		HTTPClient: httpClient,
		CacheSize:  cfg.MetadataCacheSize,
		RetryTotal: cfg.MetadataRetryTotal,
		Backoff:    cfg.MetadataRetryBackoff,
		Interval:   cfg.MetadataRequestInterval,
	}, logger, recorder)
	if err != nil {
		logger.Error("failed to initialize metadata client", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(healthChecker(cacheClient), appsAnalyzer)
	metricsHandler := handler.NewMetricsHandler(recorder)
	appsHandler := handler.NewAppsHandler(appsAnalyzer, cacheClient, logger)
	searchHandler := handler.NewSearchHandler(searchAnalyzer, cacheClient, logger)
	packageHandler := handler.NewPackageHandler(appsAnalyzer, searchAnalyzer, metadataClient, logger)
	adminHandler := handler.NewAdminHandler(
		appsFetcher, searchFetcher,
		appsSource, searchSource,
		cacheClient, metadataClient, logger,
	)

	// Setup router
	r := setupRouter(h, healthHandler, metricsHandler, appsHandler, searchHandler, packageHandler, adminHandler, cacheClient, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"app_servers", servers,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// healthChecker avoids passing a typed-nil *cache.Cache into an
// interface field.
func healthChecker(c *cache.Cache) handler.HealthChecker {
	if c == nil {
		return nil
	}
	return c
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	appsHandler *handler.AppsHandler,
	searchHandler *handler.SearchHandler,
	packageHandler *handler.PackageHandler,
	adminHandler *handler.AdminHandler,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Root info endpoint
	r.Get("/", h.Hello)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Cache:   cacheClient,
		Enabled: cfg.RateLimitAPIEnabled,
		RPS:     cfg.RateLimitAPIRPS,
		Burst:   cfg.RateLimitAPIBurst,
	}

	// Public API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))

		r.Route("/apps", func(r chi.Router) {
			r.Get("/dates", appsHandler.Dates)
			r.Get("/summary", appsHandler.Summary)
			r.Get("/timeseries", appsHandler.TimeSeries)
			r.Get("/paths", appsHandler.Paths)
			r.Get("/countries", appsHandler.Countries)
			r.Get("/packages", appsHandler.Packages)
			r.Get("/servers", appsHandler.Servers)
			r.Get("/downloads", appsHandler.Downloads)
			r.Get("/downloads/{packageID}", appsHandler.PackageDownloads)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/dates", searchHandler.Dates)
			r.Get("/summary", searchHandler.Summary)
			r.Get("/timeseries", searchHandler.TimeSeries)
			r.Get("/queries", searchHandler.Queries)
			r.Get("/countries", searchHandler.Countries)
		})

		r.Route("/packages/{packageID}", func(r chi.Router) {
			r.Get("/badge", packageHandler.Badge)
			r.Get("/categories", packageHandler.Categories)
		})
	})

	// Admin endpoints (bearer token; disabled when ADMIN_TOKEN is empty)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminToken, logger))

		r.Post("/fetch", adminHandler.Fetch)
		r.Get("/availability", adminHandler.Availability)
		r.Post("/metadata/clear", adminHandler.ClearMetadataCache)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
