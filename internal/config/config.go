// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Data source kinds.
const (
	SourceFixture = "fixture"
	SourceLive    = "live"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataSource selects the document store: fixture or live.
	DataSource  string `koanf:"data_source"`
	DatabaseURL string `koanf:"database_url"`
	DBMaxConns  int    `koanf:"db_max_conns"`
	// FixturePath points at a YAML document list; empty uses the built-in sample.
	FixturePath string `koanf:"fixture_path"`
	// FallbackToFixture switches to the fixture store when live cannot connect.
	FallbackToFixture bool `koanf:"fallback_to_fixture"`

	IngestQueueSize int `koanf:"ingest_queue_size"`
	IngestWorkers   int `koanf:"ingest_workers"`
	IngestBatchSize int `koanf:"ingest_batch_size"`
	IngestFlushMS   int `koanf:"ingest_flush_ms"`
	DedupeSize      int `koanf:"dedupe_size"`

	// DefaultLimit and MaxLimit bound the limit query parameter.
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
	TrendingDays int `koanf:"trending_days"`
	ReportDays   int `koanf:"report_days"`

	RateLimitRequests int `koanf:"rate_limit_requests"`
	RateLimitWindowS  int `koanf:"rate_limit_window_s"`
	CacheTTLS         int `koanf:"cache_ttl_s"`
	SlowRequestMS     int `koanf:"slow_request_ms"`

	// TrustProxy keys the rate limit on the last X-Forwarded-For hop.
	TrustProxy bool `koanf:"trust_proxy"`

	// WatchConfig reloads the config file on change (log level only).
	WatchConfig bool `koanf:"watch_config"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8000",
		DataSource:        SourceFixture,
		DBMaxConns:        4,
		FallbackToFixture: true,
		IngestQueueSize:   10_000,
		IngestWorkers:     4,
		IngestBatchSize:   100,
		IngestFlushMS:     500,
		DedupeSize:        100_000,
		DefaultLimit:      20,
		MaxLimit:          100,
		TrendingDays:      7,
		ReportDays:        30,
		RateLimitRequests: 100,
		RateLimitWindowS:  60,
		CacheTTLS:         300,
		SlowRequestMS:     1000,
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	check(c.Addr != "", "addr must not be empty")
	check(c.LogFormat == "text" || c.LogFormat == "json", "log_format must be text or json")
	check(c.DataSource == SourceFixture || c.DataSource == SourceLive, "data_source must be fixture or live")
	check(c.DataSource != SourceLive || c.DatabaseURL != "", "database_url is required for the live data source")
	check(c.DBMaxConns > 0, "db_max_conns must be positive")
	check(c.IngestQueueSize > 0, "ingest_queue_size must be positive")
	check(c.IngestWorkers > 0, "ingest_workers must be positive")
	check(c.IngestBatchSize > 0, "ingest_batch_size must be positive")
	check(c.IngestFlushMS > 0, "ingest_flush_ms must be positive")
	check(c.DefaultLimit > 0, "default_limit must be positive")
	check(c.MaxLimit >= c.DefaultLimit, "max_limit must be at least default_limit")
	check(c.TrendingDays > 0, "trending_days must be positive")
	check(c.ReportDays > 0, "report_days must be positive")
	check(c.RateLimitRequests >= 0, "rate_limit_requests must not be negative")
	check(c.RateLimitWindowS > 0, "rate_limit_window_s must be positive")
	check(c.CacheTTLS >= 0, "cache_ttl_s must not be negative")
	check(c.SlowRequestMS > 0, "slow_request_ms must be positive")
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// IngestFlushInterval returns IngestFlushMS as a duration.
func (c *Config) IngestFlushInterval() time.Duration {
	return time.Duration(c.IngestFlushMS) * time.Millisecond
}

// RateLimitWindow returns RateLimitWindowS as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowS) * time.Second
}

// CacheTTL returns CacheTTLS as a duration. Zero disables the cache.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}

// SlowRequest returns the slow-request logging threshold.
func (c *Config) SlowRequest() time.Duration {
	return time.Duration(c.SlowRequestMS) * time.Millisecond
}
