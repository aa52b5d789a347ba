package worker

import (
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithInterval sets how often a batch is processed.
func WithInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = d
		}
	}
}

// WithBatchSize sets the maximum number of events per batch.
func WithBatchSize(n int) Option {
	return func(dr *Driver) {
		if n > 0 {
			dr.batchSize = n
		}
	}
}

// WithLogger sets a custom logger for the driver.
func WithLogger(l logger.Logger) Option {
	return func(dr *Driver) {
		if l != nil {
			dr.logger = l
		}
	}
}
