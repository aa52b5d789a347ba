package main

import (
	"github.com/spf13/cobra"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/loadtest"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

func loadtestCmd() *cobra.Command {
	cfg := loadtest.NewConfig()
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent searches to a running service and verify rankings",
		Long: `Send concurrent searches to a running service and verify that every
response is ordered by matchScore and respects its limit.

Examples:
  pambo loadtest --url http://localhost:8080 --requests 5000 --workers 32`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			_, err := loadtest.Run(cmd.Context(), cfg, metrics.NewAggregator(), logger.Named("loadtest"))
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	cmd.Flags().IntVarP(&cfg.Requests, "requests", "n", cfg.Requests, "number of searches to send")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "concurrent workers")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	cmd.Flags().IntVar(&cfg.Limit, "limit", cfg.Limit, "limit parameter of each search")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "traffic generator seed")
	cmd.Flags().StringSliceVar(&cfg.Queries, "queries", cfg.Queries, "query pool")
	cmd.Flags().StringSliceVar(&cfg.Hubs, "hubs", cfg.Hubs, "hub pool")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "log each failed search")
	return cmd
}
