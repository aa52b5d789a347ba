// Package service wires storage, ranking and telemetry into the search
// service used by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/mq/queue"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/mq/worker"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/repository"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize       = 20000
	defaultBatchSize       = 200
	defaultProcessInterval = time.Second
	defaultSearchLimit     = 20
	defaultMaxSearchLimit  = 100
	defaultHub             = "marketplace"
	defaultListingStatus   = "active"
	defaultEventSource     = "search-service"
)

// Service implements search and owns the telemetry pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	listings repository.ListingStore
	sellers  repository.SellerStore
	metrics  *metrics.Aggregator
	events   *queue.EventQueue
	driver   *worker.Driver

	// Search configuration
	variants         []repository.QueryVariant
	isSchemaMismatch func(error) bool
	defaultLimit     int
	maxLimit         int
	listingStatus    string
	eventSource      string

	// Telemetry configuration
	queueSize       int
	batchSize       int
	processInterval time.Duration
	handlerTimeout  time.Duration

	// State
	started bool
	now     func() time.Time

	// Logging
	logger logger.Logger
}

// New constructs a Service over the given stores.
func New(listings repository.ListingStore, sellers repository.SellerStore, opts ...Option) *Service {
	s := &Service{
		listings:         listings,
		sellers:          sellers,
		variants:         repository.DefaultVariants(),
		isSchemaMismatch: IsSchemaMismatch,
		defaultLimit:     defaultSearchLimit,
		maxLimit:         defaultMaxSearchLimit,
		listingStatus:    defaultListingStatus,
		eventSource:      defaultEventSource,
		queueSize:        defaultQueueSize,
		batchSize:        defaultBatchSize,
		processInterval:  defaultProcessInterval,
		now:              time.Now,
		logger:           logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.NewAggregator()
	}
	s.events = queue.New(s.metrics,
		queue.WithCapacity(s.queueSize),
		queue.WithHandlerTimeout(s.handlerTimeout),
		queue.WithLogger(s.logger.Named("queue")),
	)
	s.driver = worker.NewDriver(s.events,
		worker.WithInterval(s.processInterval),
		worker.WithBatchSize(s.batchSize),
		worker.WithLogger(s.logger.Named("driver")),
	)
	s.events.RegisterHandler(model.EventSearch, s.recordSearchAnalytics)

	return s
}

// Start launches the background event driver. Starting twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting search service...")
	if err := s.driver.Start(ctx); err != nil {
		return fmt.Errorf("start event driver: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "search service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("batchSize", s.batchSize),
		logger.Duration("processInterval", s.processInterval),
	)
	return nil
}

// Shutdown rejects new events, stops the driver and hands any queued events
// to their handlers before returning.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping search service...")
	_ = s.events.Close()
	if err := s.driver.Shutdown(ctx); err != nil {
		return err
	}

	drained := 0
	for s.events.Len() > 0 {
		if ctx.Err() != nil {
			s.logger.Warn(ctx, "events left unprocessed at shutdown", logger.Int("events", s.events.Len()))
			break
		}
		drained += s.events.ProcessBatch(context.WithoutCancel(ctx), s.batchSize)
	}

	s.started = false
	s.logger.Info(ctx, "search service stopped", logger.Int("drainedEvents", drained))
	return nil
}

// Events returns the event queue so callers can register handlers.
func (s *Service) Events() *queue.EventQueue {
	return s.events
}

// Metrics returns the aggregator shared by every component of the service.
func (s *Service) Metrics() *metrics.Aggregator {
	return s.metrics
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	variants := make([]string, len(s.variants))
	for i, v := range s.variants {
		variants[i] = v.Name
	}

	return map[string]any{
		"started":         started,
		"queueLength":     s.events.Len(),
		"queueCapacity":   s.events.Capacity(),
		"droppedEvents":   s.metrics.Counter(queue.MetricDropped, nil),
		"searchRequests":  s.metrics.Counter(MetricSearchRequests, nil),
		"searchErrors":    s.metrics.Counter(MetricSearchErrors, nil),
		"queryVariants":   variants,
		"batchSize":       s.batchSize,
		"processInterval": s.processInterval.String(),
	}
}

// recordSearchAnalytics is the built-in SEARCH handler.
func (s *Service) recordSearchAnalytics(_ context.Context, e model.PlatformEvent) error {
	hub, _ := e.Payload["hub"].(string)
	s.metrics.Increment(MetricSearchByHub, metrics.Labels{"hub": hub})
	if n, ok := e.Payload["resultCount"].(int); ok && n == 0 {
		s.metrics.Increment(MetricSearchZeroResults, metrics.Labels{"hub": hub})
	}
	return nil
}
