// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and PAMBO_* environment variables on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"strings"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables the seller cache and the Redis event sink when set.
	RedisURL string `koanf:"redis_url"`

	// ListingsTable and SellersTable name the source tables, optionally
	// schema qualified.
	ListingsTable string `koanf:"listings_table"`
	SellersTable  string `koanf:"sellers_table"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// BatchSize is the number of events processed per driver tick.
	BatchSize int `koanf:"batch_size"`

	// ProcessIntervalMS is the driver tick in milliseconds.
	ProcessIntervalMS int `koanf:"process_interval_ms"`

	// HandlerTimeoutMS bounds each event handler; 0 disables the bound.
	HandlerTimeoutMS int `koanf:"handler_timeout_ms"`

	// LatencySamples caps the samples kept per latency series.
	LatencySamples int `koanf:"latency_samples"`

	// MaxSearchLimit caps GET /api/search?limit; DefaultSearchLimit applies
	// when limit is absent.
	MaxSearchLimit     int `koanf:"max_search_limit"`
	DefaultSearchLimit int `koanf:"default_search_limit"`

	// SellerCacheTTLS is the seller cache TTL in seconds.
	SellerCacheTTLS int `koanf:"seller_cache_ttl_s"`

	// KafkaBrokers is a comma separated broker list; empty disables the
	// Kafka sink.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	// RedisEventChannel is the pub/sub channel for the Redis sink.
	RedisEventChannel string `koanf:"redis_event_channel"`

	// ReportSchedule is the cron spec of the metrics reporter.
	ReportSchedule string `koanf:"report_schedule"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8080",
		ListingsTable:      "listings",
		SellersTable:       "sellers",
		EventQueueSize:     20_000,
		BatchSize:          200,
		ProcessIntervalMS:  1000,
		HandlerTimeoutMS:   0,
		LatencySamples:     500,
		MaxSearchLimit:     100,
		DefaultSearchLimit: 20,
		SellerCacheTTLS:    300,
		KafkaTopic:         "platform-events",
		RedisEventChannel:  "platform-events",
		ReportSchedule:     "@every 1m",
	}
}

// ProcessInterval returns the driver tick.
func (c *Config) ProcessInterval() time.Duration {
	return time.Duration(c.ProcessIntervalMS) * time.Millisecond
}

// HandlerTimeout returns the per-handler bound, zero when disabled.
func (c *Config) HandlerTimeout() time.Duration {
	return time.Duration(c.HandlerTimeoutMS) * time.Millisecond
}

// SellerCacheTTL returns the seller cache TTL.
func (c *Config) SellerCacheTTL() time.Duration {
	return time.Duration(c.SellerCacheTTLS) * time.Second
}

// KafkaBrokerList splits KafkaBrokers, dropping blanks.
func (c *Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
