// Package queue implements the bounded in-memory platform event queue.
//
// Producers call Emit, which never waits on handlers. A single driver calls
// ProcessBatch on an interval to drain events from the head and dispatch
// them to the handlers registered for their type.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity  = 20000
	defaultBatchSize = 100
)

// Metric series written by the queue.
const (
	MetricEmitted         = "events.emitted"
	MetricDropped         = "events.dropped"
	MetricQueueDepth      = "events.queue_depth"
	MetricProcessed       = "events.processed"
	MetricHandlerFailures = "events.handler_failures"
	MetricHandlerLatency  = "events.handler"
)

// Event is the payload type flowing through the queue.
type Event = model.PlatformEvent

// Handler consumes one event. A returned error (or a panic) is counted as a
// failure of this invocation only.
type Handler func(ctx context.Context, e Event) error

type handlerEntry struct {
	id uint64
	fn Handler
}

// Registration identifies one registered handler.
type Registration struct {
	q         *EventQueue
	eventType string
	id        uint64
}

// Unregister removes the handler. Calling it more than once is a no-op.
func (r *Registration) Unregister() {
	if r == nil || r.q == nil {
		return
	}
	r.q.unregister(r.eventType, r.id)
}

// EventQueue is a bounded FIFO of platform events with per-type handlers.
// When full, Emit evicts the oldest event to make room.
type EventQueue struct {
	mu sync.Mutex

	// ring buffer
	buf  []Event
	head int
	size int

	handlers map[string][]handlerEntry
	nextID   uint64
	closed   bool

	capacity       int
	batchSize      int
	handlerTimeout time.Duration

	metrics *metrics.Aggregator
	logger  logger.Logger
	now     func() time.Time
}

// New creates an event queue instrumented through agg.
func New(agg *metrics.Aggregator, opts ...Option) *EventQueue {
	q := &EventQueue{
		handlers:  make(map[string][]handlerEntry),
		capacity:  defaultCapacity,
		batchSize: defaultBatchSize,
		metrics:   agg,
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.metrics == nil {
		q.metrics = metrics.NewAggregator()
	}
	q.buf = make([]Event, q.capacity)
	return q
}

// Emit appends a new event to the tail. If the queue is full the head event
// is evicted first and counted as dropped. Emit never runs handlers.
func (q *EventQueue) Emit(ctx context.Context, eventType, source string, payload map[string]any) (Event, error) {
	e := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: q.now().UTC(),
		Payload:   payload,
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Event{}, ErrClosed
	}
	var evicted *Event
	if q.size == q.capacity {
		old := q.buf[q.head]
		evicted = &old
		q.buf[q.head] = Event{}
		q.head = (q.head + 1) % q.capacity
		q.size--
	}
	q.buf[(q.head+q.size)%q.capacity] = e
	q.size++
	q.mu.Unlock()

	if evicted != nil {
		q.metrics.Increment(MetricDropped, nil)
		q.metrics.Add(MetricQueueDepth, nil, -1)
		q.logger.Debug(ctx, "event queue full, dropped oldest event",
			logger.String("droppedID", evicted.ID),
			logger.String("droppedType", evicted.Type),
		)
	}
	q.metrics.Increment(MetricEmitted, metrics.Labels{"type": eventType})
	q.metrics.Add(MetricQueueDepth, nil, 1)
	return e, nil
}

// RegisterHandler appends fn to the handlers for eventType. Handlers run in
// registration order.
func (q *EventQueue) RegisterHandler(eventType string, fn Handler) *Registration {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	q.handlers[eventType] = append(q.handlers[eventType], handlerEntry{id: q.nextID, fn: fn})
	return &Registration{q: q, eventType: eventType, id: q.nextID}
}

func (q *EventQueue) unregister(eventType string, id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.handlers[eventType]
	for i, h := range entries {
		if h.id != id {
			continue
		}
		kept := make([]handlerEntry, 0, len(entries)-1)
		kept = append(kept, entries[:i]...)
		kept = append(kept, entries[i+1:]...)
		if len(kept) == 0 {
			delete(q.handlers, eventType)
		} else {
			q.handlers[eventType] = kept
		}
		return
	}
}

// ProcessBatch removes up to limit events from the head (limit <= 0 uses
// the configured batch size) and runs every matching handler for each, one
// at a time. It returns the number of events removed.
func (q *EventQueue) ProcessBatch(ctx context.Context, limit int) int {
	if limit <= 0 {
		limit = q.batchSize
	}

	q.mu.Lock()
	n := min(limit, q.size)
	if n == 0 {
		q.mu.Unlock()
		return 0
	}
	batch := make([]Event, n)
	for i := 0; i < n; i++ {
		batch[i] = q.buf[q.head]
		q.buf[q.head] = Event{}
		q.head = (q.head + 1) % q.capacity
	}
	q.size -= n
	q.mu.Unlock()

	q.metrics.Add(MetricQueueDepth, nil, -int64(n))

	for _, e := range batch {
		for _, h := range q.handlersFor(e.Type) {
			q.invoke(ctx, h, e)
		}
		q.metrics.Increment(MetricProcessed, metrics.Labels{"type": e.Type})
	}
	return n
}

// handlersFor copies the current handler list so handlers can register or
// unregister while a batch is running.
func (q *EventQueue) handlersFor(eventType string) []Handler {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.handlers[eventType]
	out := make([]Handler, len(entries))
	for i, h := range entries {
		out[i] = h.fn
	}
	return out
}

func (q *EventQueue) invoke(ctx context.Context, h Handler, e Event) {
	start := time.Now()
	err := q.call(ctx, h, e)
	labels := metrics.Labels{"type": e.Type}
	q.metrics.RecordLatency(MetricHandlerLatency, float64(time.Since(start).Microseconds())/1000, labels)
	if err != nil {
		q.metrics.Increment(MetricHandlerFailures, labels)
		q.logger.Warn(ctx, "event handler failed",
			logger.String("eventID", e.ID),
			logger.String("type", e.Type),
			logger.Error(err),
		)
	}
}

func (q *EventQueue) call(ctx context.Context, h Handler, e Event) error {
	if q.handlerTimeout <= 0 {
		return safeCall(ctx, h, e)
	}

	ctx, cancel := context.WithTimeout(ctx, q.handlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- safeCall(ctx, h, e) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// the handler goroutine is abandoned; it can still finish on its own
		return fmt.Errorf("%w after %s", ErrHandlerTimeout, q.handlerTimeout)
	}
}

func safeCall(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(ctx, e)
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Capacity returns the maximum number of queued events.
func (q *EventQueue) Capacity() int {
	return q.capacity
}

// Close rejects further emits. Queued events stay available to ProcessBatch.
func (q *EventQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *EventQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
