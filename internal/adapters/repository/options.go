package repository

import (
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

// Default table names.
const (
	defaultListingsTable = "listings"
	defaultSellersTable  = "sellers"
)

// Option applies a configuration option to the PostgresStore.
type Option func(*PostgresStore)

// WithListingsTable sets the listings table name.
func WithListingsTable(name string) Option {
	return func(s *PostgresStore) {
		if name != "" {
			s.listingsTable = name
		}
	}
}

// WithSellersTable sets the sellers table name.
func WithSellersTable(name string) Option {
	return func(s *PostgresStore) {
		if name != "" {
			s.sellersTable = name
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// CacheOption applies a configuration option to the CachedSellerStore.
type CacheOption func(*CachedSellerStore)

// WithTTL sets how long cached sellers live.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedSellerStore) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the Redis key prefix for cached sellers.
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *CachedSellerStore) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCacheLogger sets a custom logger for the cache.
func WithCacheLogger(l logger.Logger) CacheOption {
	return func(c *CachedSellerStore) {
		if l != nil {
			c.logger = l
		}
	}
}
