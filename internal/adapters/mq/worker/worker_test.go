package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/mq/queue"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/mq/worker"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

type mockProcessor struct {
	calls  atomic.Int64
	limits chan int
	block  chan struct{}
	ctxErr   atomic.Value
	finished atomic.Int64
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{limits: make(chan int, 100)}
}

func (m *mockProcessor) ProcessBatch(ctx context.Context, limit int) int {
	m.calls.Add(1)
	select {
	case m.limits <- limit:
	default:
	}
	if m.block != nil {
		<-m.block
		if err := ctx.Err(); err != nil {
			m.ctxErr.Store(err)
		}
	}
	m.finished.Add(1)
	return 0
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDriver_ProcessesOnInterval(t *testing.T) {
	p := newMockProcessor()
	d := worker.NewDriver(p, worker.WithInterval(10*time.Millisecond), worker.WithBatchSize(7))

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return p.calls.Load() >= 3 })

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := <-p.limits; got != 7 {
		t.Errorf("expected batch size 7, got %d", got)
	}

	stopped := p.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if p.calls.Load() != stopped {
		t.Error("driver kept processing after shutdown")
	}
}

func TestDriver_Lifecycle(t *testing.T) {
	convey.Convey("Given a driver", t, func() {
		d := worker.NewDriver(newMockProcessor(), worker.WithInterval(time.Hour))
		ctx := context.Background()

		convey.Convey("When it is started twice", func() {
			convey.So(d.Start(ctx), convey.ShouldBeNil)
			err := d.Start(ctx)

			convey.Convey("Then the second start is rejected", func() {
				convey.So(errors.Is(err, worker.ErrAlreadyRunning), convey.ShouldBeTrue)
				convey.So(d.Running(), convey.ShouldBeTrue)
			})

			convey.Reset(func() { _ = d.Shutdown(ctx) })
		})

		convey.Convey("When it is shut down without being started", func() {
			convey.Convey("Then shutdown is a no-op", func() {
				convey.So(d.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When it is restarted after shutdown", func() {
			convey.So(d.Start(ctx), convey.ShouldBeNil)
			convey.So(d.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then it starts again", func() {
				convey.So(d.Start(ctx), convey.ShouldBeNil)
				convey.So(d.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestDriver_ShutdownWaitsForInFlightBatch(t *testing.T) {
	p := newMockProcessor()
	p.block = make(chan struct{})
	d := worker.NewDriver(p, worker.WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return p.calls.Load() >= 1 })

	// cancel the parent while the batch is blocked
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer stop()
	if err := d.Shutdown(shutdownCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected shutdown to time out while the batch is running, got %v", err)
	}

	close(p.block)
	waitFor(t, func() bool { return p.finished.Load() >= 1 })
	if v := p.ctxErr.Load(); v != nil {
		t.Errorf("batch context was canceled: %v", v)
	}
}

func TestDriver_RunStopsOnContextCancel(t *testing.T) {
	d := worker.NewDriver(newMockProcessor(), worker.WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = d.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()
	if runErr != nil {
		t.Errorf("unexpected run error: %v", runErr)
	}
}

func TestDriver_DrainsRealQueue(t *testing.T) {
	agg := metrics.NewAggregator()
	q := queue.New(agg)

	var handled atomic.Int64
	q.RegisterHandler("SEARCH", func(context.Context, queue.Event) error {
		handled.Add(1)
		return nil
	})
	for i := 0; i < 25; i++ {
		if _, err := q.Emit(context.Background(), "SEARCH", "test", nil); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	d := worker.NewDriver(q, worker.WithInterval(5*time.Millisecond), worker.WithBatchSize(10))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = d.Shutdown(context.Background()) }()

	waitFor(t, func() bool { return handled.Load() == 25 })
	if q.Len() != 0 {
		t.Errorf("expected drained queue, got %d", q.Len())
	}
	if got := agg.Counter(queue.MetricProcessed, metrics.Labels{"type": "SEARCH"}); got != 25 {
		t.Errorf("expected 25 processed, got %d", got)
	}
}
