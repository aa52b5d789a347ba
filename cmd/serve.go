package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/http/api"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/mq/sink"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/repository"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/scheduler"
	service "github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/app"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/config"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the search HTTP API",
		Long: `Run the search HTTP API backed by Postgres.

Configuration is read from defaults, the YAML file named by PAMBO_CONFIG,
then PAMBO_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServe(ctx, cfg)
		},
	}
}

// closers run in reverse order on exit.
type closers []func() error

func (c closers) run(l logger.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			l.Warn(context.Background(), "close failed", logger.Error(err))
		}
	}
}

// component is a background part of the serve process.
type component struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// startAll starts components in order. If one fails, the ones already
// started are stopped in reverse order before the error is returned. The
// returned stop function stops every component in reverse order.
func startAll(ctx context.Context, comps ...component) (func(context.Context) error, error) {
	stopUpTo := func(n int) func(context.Context) error {
		return func(ctx context.Context) error {
			var errs []error
			for i := n - 1; i >= 0; i-- {
				if err := comps[i].stop(ctx); err != nil {
					errs = append(errs, fmt.Errorf("stop %s: %w", comps[i].name, err))
				}
			}
			return errors.Join(errs...)
		}
	}

	for i, c := range comps {
		if err := c.start(ctx); err != nil {
			startErr := fmt.Errorf("start %s: %w", c.name, err)
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return nil, errors.Join(startErr, stopUpTo(i)(stopCtx))
		}
	}
	return stopUpTo(len(comps)), nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var cleanup closers
	defer cleanup.run(log)

	pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, func() error { pool.Close(); return nil })

	store := repository.NewPostgresStore(pool,
		repository.WithListingsTable(cfg.ListingsTable),
		repository.WithSellersTable(cfg.SellersTable),
		repository.WithLogger(log.Named("repository")),
	)
	var sellers repository.SellerStore = store

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, rdb.Close)
		sellers = repository.NewCachedSellerStore(store, rdb,
			repository.WithTTL(cfg.SellerCacheTTL()),
			repository.WithCacheLogger(log.Named("seller-cache")),
		)
	}

	agg := metrics.NewAggregator(metrics.WithMaxSamples(cfg.LatencySamples))
	registry, err := metrics.NewRegistry(agg)
	if err != nil {
		return err
	}

	svc := service.New(store, sellers,
		service.WithLogger(log.Named("search")),
		service.WithMetrics(agg),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithBatchSize(cfg.BatchSize),
		service.WithProcessInterval(cfg.ProcessInterval()),
		service.WithHandlerTimeout(cfg.HandlerTimeout()),
		service.WithSearchLimits(cfg.DefaultSearchLimit, cfg.MaxSearchLimit),
		service.WithSchemaMismatch(repository.IsUndefinedColumn),
	)

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		ks := sink.NewKafkaSink(sink.NewKafkaWriter(brokers, cfg.KafkaTopic))
		cleanup = append(cleanup, ks.Close)
		svc.Events().RegisterHandler(model.EventSearch, ks.Handle)
		log.Info(ctx, "kafka event sink enabled", logger.String("topic", cfg.KafkaTopic))
	}
	if rdb != nil && cfg.RedisEventChannel != "" {
		svc.Events().RegisterHandler(model.EventSearch, sink.NewRedisSink(rdb, cfg.RedisEventChannel).Handle)
		log.Info(ctx, "redis event sink enabled", logger.String("channel", cfg.RedisEventChannel))
	}

	reporter := scheduler.NewReporter(agg, cfg.ReportSchedule, scheduler.WithLogger(log.Named("reporter")))
	stopBackground, err := startAll(ctx,
		component{name: "service", start: svc.Start, stop: svc.Shutdown},
		component{name: "reporter", start: reporter.Start, stop: reporter.Stop},
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, agg, registry, api.WithLogger(log.Named("api"))).Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		return errors.Join(srv.Shutdown(shutdownCtx), stopBackground(shutdownCtx))
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}
