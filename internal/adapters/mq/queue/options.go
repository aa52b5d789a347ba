package queue

import (
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

// Option applies a configuration option to the EventQueue.
type Option func(*EventQueue)

// WithCapacity sets the maximum number of queued events.
func WithCapacity(capacity int) Option {
	return func(q *EventQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithBatchSize sets the default ProcessBatch limit.
func WithBatchSize(size int) Option {
	return func(q *EventQueue) {
		if size > 0 {
			q.batchSize = size
		}
	}
}

// WithHandlerTimeout bounds each handler invocation. Zero disables the
// timeout, in which case a hung handler stalls its batch.
func WithHandlerTimeout(d time.Duration) Option {
	return func(q *EventQueue) {
		if d >= 0 {
			q.handlerTimeout = d
		}
	}
}

// WithLogger sets the logger used for handler failures.
func WithLogger(l logger.Logger) Option {
	return func(q *EventQueue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(q *EventQueue) {
		if now != nil {
			q.now = now
		}
	}
}
