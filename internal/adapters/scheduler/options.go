package scheduler

import "github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"

// Option applies a configuration option to the Reporter.
type Option func(*Reporter)

// WithLogger sets a custom logger for the reporter.
func WithLogger(l logger.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWatchedCounters replaces the counters tracked in every report.
func WithWatchedCounters(names ...string) Option {
	return func(r *Reporter) {
		if len(names) > 0 {
			r.watched = names
		}
	}
}

// WithReportHook is called with every report after it is logged.
func WithReportHook(fn func(Report)) Option {
	return func(r *Reporter) {
		r.onReport = fn
	}
}
