package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// Metric series written during a run.
const (
	MetricLatency = "loadtest.latency"
	MetricResults = "loadtest.results"
)

// Run checks service health, sends the generated searches with cfg.Workers
// concurrent workers and verifies every response. Latencies and outcomes
// are recorded in agg. It returns ErrViolations when any response broke a
// ranking invariant.
func Run(ctx context.Context, cfg *Config, agg *metrics.Aggregator, log logger.Logger) (Stats, error) {
	log = logger.OrNop(log)
	start := time.Now()

	log.Info(ctx, "starting search load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := checkHealth(ctx, c); err != nil {
		return Stats{}, err
	}

	var sent, ok, failed, violations, listings atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, sc := range generateCases(cfg) {
		if gctx.Err() != nil {
			break
		}
		sc := sc
		g.Go(func() error {
			sent.Add(1)
			begin := time.Now()
			resp, err := c.search(gctx, sc)
			agg.RecordLatency(MetricLatency, float64(time.Since(begin).Microseconds())/1000, nil)
			if err != nil {
				failed.Add(1)
				agg.Increment(MetricResults, metrics.Labels{"outcome": "failed"})
				if cfg.Verbose {
					log.Warn(gctx, "search failed", logger.String("query", sc.Query), logger.Error(err))
				}
				return nil
			}
			if err := verify(sc, resp); err != nil {
				violations.Add(1)
				agg.Increment(MetricResults, metrics.Labels{"outcome": "violation"})
				log.Warn(gctx, "ranking violation",
					logger.String("query", sc.Query),
					logger.String("hub", sc.Hub),
					logger.Error(err),
				)
				return nil
			}
			ok.Add(1)
			listings.Add(int64(len(resp.Listings)))
			agg.Increment(MetricResults, metrics.Labels{"outcome": "ok"})
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{
		Sent:       int(sent.Load()),
		Succeeded:  int(ok.Load()),
		Failed:     int(failed.Load()),
		Violations: int(violations.Load()),
		Listings:   int(listings.Load()),
		Duration:   time.Since(start),
	}
	logFinalStats(ctx, log, stats, agg)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d of %d responses", ErrViolations, stats.Violations, stats.Sent)
	}
	return stats, nil
}

func checkHealth(ctx context.Context, c *client) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, s Stats, agg *metrics.Aggregator) {
	var rps float64
	if s.Duration > 0 {
		rps = float64(s.Sent) / s.Duration.Seconds()
	}
	lat := agg.Snapshot().Latencies[MetricLatency]
	log.Info(ctx, "final statistics",
		logger.Int("sent", s.Sent),
		logger.Int("succeeded", s.Succeeded),
		logger.Int("failed", s.Failed),
		logger.Int("violations", s.Violations),
		logger.Int("listings", s.Listings),
		logger.Duration("duration", s.Duration),
		logger.Float64("requestsPerSecond", rps),
		logger.Float64("p95ms", lat.P95),
		logger.Float64("p99ms", lat.P99),
	)
}
