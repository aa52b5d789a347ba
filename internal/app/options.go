package service

import (
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/repository"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics shares an existing aggregator with the service.
func WithMetrics(agg *metrics.Aggregator) Option {
	return func(s *Service) {
		if agg != nil {
			s.metrics = agg
		}
	}
}

// WithQueueSize sets the maximum number of queued events.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBatchSize sets how many events the driver processes per tick.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithProcessInterval sets how often the driver processes a batch.
func WithProcessInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.processInterval = d
		}
	}
}

// WithHandlerTimeout bounds each event handler invocation. Zero disables it.
func WithHandlerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.handlerTimeout = d
		}
	}
}

// WithQueryVariants replaces the listing query fallback chain.
func WithQueryVariants(variants ...repository.QueryVariant) Option {
	return func(s *Service) {
		s.variants = variants
	}
}

// WithSchemaMismatch sets the predicate deciding whether a failed variant
// falls through to the next one.
func WithSchemaMismatch(fn func(error) bool) Option {
	return func(s *Service) {
		if fn != nil {
			s.isSchemaMismatch = fn
		}
	}
}

// WithSearchLimits sets the default and maximum page size.
func WithSearchLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
		if s.defaultLimit > s.maxLimit {
			s.defaultLimit = s.maxLimit
		}
	}
}

// WithListingStatus sets the listing status searched for. Empty disables
// the status filter.
func WithListingStatus(status string) Option {
	return func(s *Service) {
		s.listingStatus = status
	}
}

// WithEventSource sets the source label on emitted events.
func WithEventSource(source string) Option {
	return func(s *Service) {
		if source != "" {
			s.eventSource = source
		}
	}
}

// WithClock overrides the ranking clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
