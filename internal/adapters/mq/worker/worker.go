// Package worker drives the event queue in the background.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

// Default driver configuration constants.
const (
	defaultInterval  = time.Second
	defaultBatchSize = 200
)

// Processor drains up to limit events and reports how many it removed.
type Processor interface {
	ProcessBatch(ctx context.Context, limit int) int
}

// Driver calls ProcessBatch on a fixed interval. Only one driver should
// serve a given queue.
type Driver struct {
	processor Processor
	interval  time.Duration
	batchSize int

	mu       sync.Mutex
	running  bool
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDriver creates a driver for p.
func NewDriver(p Processor, opts ...Option) *Driver {
	d := &Driver{
		processor: p,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the processing loop. It returns ErrAlreadyRunning if the
// loop is already active.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrAlreadyRunning
	}
	d.running = true
	d.shutdown = make(chan struct{})
	d.done = make(chan struct{})

	go d.run(ctx, d.shutdown, d.done)
	return nil
}

// Run blocks, processing batches until ctx is canceled or Shutdown is called.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	<-done
	return nil
}

func (d *Driver) run(ctx context.Context, shutdown <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// batches are never aborted midway by cancellation
	batchCtx := context.WithoutCancel(ctx)

	d.logger.Info(ctx, "event driver started",
		logger.Duration("interval", d.interval),
		logger.Int("batchSize", d.batchSize),
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-shutdown:
			return
		case <-ticker.C:
			if n := d.processor.ProcessBatch(batchCtx, d.batchSize); n > 0 {
				d.logger.Debug(ctx, "processed event batch", logger.Int("events", n))
			}
		}
	}
}

// Shutdown stops scheduling new batches and waits for the in-flight batch
// to finish, or for ctx to expire. It is a no-op when the driver is not
// running.
func (d *Driver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.shutdown)
	done := d.done
	d.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "event driver shutdown timed out")
		return fmt.Errorf("driver shutdown timed out: %w", ctx.Err())
	}
}

// Running reports whether the loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
