// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Local directories
	AppDataDir       string `env:"APP_DATA_DIR" envDefault:"data/fdroid_metrics"`
	SearchDataDir    string `env:"SEARCH_DATA_DIR" envDefault:"data/fdroid_metrics_search"`
	ProcessedDir     string `env:"PROCESSED_DIR" envDefault:"processed"`
	MetadataCacheDir string `env:"METADATA_CACHE_DIR" envDefault:"data/metadata_cache"`

	// Remote sources
	AppsBaseURL   string `env:"APPS_BASE_URL" envDefault:"https://fdroid.gitlab.io/metrics"`
	SearchBaseURL string `env:"SEARCH_BASE_URL" envDefault:"https://fdroid.gitlab.io/metrics/search.f-droid.org"`
	// Comma-separated list of app origin servers
	AppServers      string `env:"APP_SERVERS" envDefault:"http01.fdroid.net,http02.fdroid.net,http03.fdroid.net"`
	MetadataBaseURL string `env:"METADATA_BASE_URL" envDefault:"https://gitlab.com/fdroid/fdroiddata/-/raw/master/metadata"`

	// Snapshot caches
	AppCacheSize      int `env:"APP_CACHE_SIZE" envDefault:"100"`
	SearchCacheSize   int `env:"SEARCH_CACHE_SIZE" envDefault:"1000"`
	MetadataCacheSize int `env:"METADATA_CACHE_SIZE" envDefault:"500"`

	// Fetch pipeline
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxRangeDays   int           `env:"MAX_RANGE_DAYS" envDefault:"730"`
	FetchBatchSize int           `env:"FETCH_BATCH_SIZE" envDefault:"8"`

	// Metadata client retry policy
	MetadataRetryTotal      int           `env:"METADATA_RETRY_TOTAL" envDefault:"3"`
	MetadataRetryBackoff    time.Duration `env:"METADATA_RETRY_BACKOFF" envDefault:"1s"`
	MetadataRequestInterval time.Duration `env:"METADATA_REQUEST_INTERVAL" envDefault:"100ms"`

	// Export
	MonthlySnapshotCount int `env:"MONTHLY_SNAPSHOT_COUNT" envDefault:"4"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL" envDefault:""`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPS     int  `env:"RATE_LIMIT_API_RPS" envDefault:"20"`
	RateLimitAPIBurst   int  `env:"RATE_LIMIT_API_BURST" envDefault:"10"`

	// Admin endpoints (fetch trigger, cache clear). Empty disables them.
	AdminToken string `env:"ADMIN_TOKEN" envDefault:""`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetAppServers parses the comma-separated server list into a slice.
func (c *Config) GetAppServers() []string {
	servers := strings.Split(c.AppServers, ",")
	result := make([]string, 0, len(servers))
	for _, server := range servers {
		trimmed := strings.TrimSpace(server)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if any variable fails to parse.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
