// Package scheduler runs periodic jobs over the service metrics.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// DefaultSpec fires the report once a minute.
const DefaultSpec = "@every 1m"

// ErrInvalidSchedule is returned by Start for a spec cron cannot parse.
var ErrInvalidSchedule = errors.New("invalid report schedule")

var defaultWatched = []string{"search.requests", "search.errors", "events.dropped"}

// Report is one periodic summary of the aggregator.
type Report struct {
	CounterSeries int
	LatencySeries int
	// Watched holds the current value of each watched counter and Deltas
	// its change since the previous report.
	Watched map[string]int64
	Deltas  map[string]int64
}

// Reporter logs a metrics summary on a cron schedule.
type Reporter struct {
	agg     *metrics.Aggregator
	spec    string
	watched []string
	cron    *cron.Cron
	logger  logger.Logger

	mu       sync.Mutex
	last     map[string]int64
	started  bool
	onReport func(Report)
}

// NewReporter creates a reporter over agg firing on spec (empty uses
// DefaultSpec).
func NewReporter(agg *metrics.Aggregator, spec string, opts ...Option) *Reporter {
	if spec == "" {
		spec = DefaultSpec
	}
	r := &Reporter{
		agg:     agg,
		spec:    spec,
		watched: defaultWatched,
		logger:  logger.Nop(),
		last:    make(map[string]int64),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cron = cron.New(cron.WithLogger(cronLogger{l: r.logger}))
	return r
}

// Start registers the report job and starts the scheduler.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}
	if _, err := r.cron.AddFunc(r.spec, func() { r.Report(ctx) }); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, r.spec, err)
	}
	r.cron.Start()
	r.started = true
	r.logger.Info(ctx, "metrics reporter started", logger.String("spec", r.spec))
	return nil
}

// Stop halts the scheduler and waits for a running report, or for ctx.
func (r *Reporter) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.mu.Unlock()

	select {
	case <-r.cron.Stop().Done():
		r.logger.Info(ctx, "metrics reporter stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reporter stop: %w", ctx.Err())
	}
}

// Report summarizes the aggregator once and logs the result.
func (r *Reporter) Report(ctx context.Context) Report {
	snap := r.agg.Snapshot()

	r.mu.Lock()
	rep := Report{
		CounterSeries: len(snap.Counters),
		LatencySeries: len(snap.Latencies),
		Watched:       make(map[string]int64, len(r.watched)),
		Deltas:        make(map[string]int64, len(r.watched)),
	}
	for _, name := range r.watched {
		v := snap.Counters[name]
		rep.Watched[name] = v
		rep.Deltas[name] = v - r.last[name]
		r.last[name] = v
	}
	hook := r.onReport
	r.mu.Unlock()

	fields := []logger.Field{
		logger.Int("counterSeries", rep.CounterSeries),
		logger.Int("latencySeries", rep.LatencySeries),
	}
	names := make([]string, 0, len(rep.Watched))
	for name := range rep.Watched {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fields = append(fields,
			logger.Int64(name, rep.Watched[name]),
			logger.Int64(name+".delta", rep.Deltas[name]),
		)
	}
	if s, ok := snap.Latencies["search.latency"]; ok && s.Count > 0 {
		fields = append(fields, logger.Float64("search.latency.p95", s.P95))
	}
	r.logger.Info(ctx, "metrics report", fields...)

	if hook != nil {
		hook(rep)
	}
	return rep
}

// cronLogger routes cron's own logging through the service logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(context.Background(), "cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(context.Background(), "cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
