// Package loadtest drives concurrent search traffic against a running
// service and checks every response for ranking consistency.
package loadtest

import (
	"runtime"
	"time"
)

// Defaults applied by NewConfig.
const (
	defaultBaseURL  = "http://localhost:8080"
	defaultRequests = 1000
	defaultTimeout  = 10 * time.Second
	defaultLimit    = 20
	workersPerCPU   = 2
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Requests int           // Number of searches to send
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Limit    int           // limit parameter of each search
	Seed     int64         // generator seed, fixed for reproducible runs
	Queries  []string
	Hubs     []string
	Counties []string
	Verbose  bool
}

// NewConfig returns a Config with defaults suitable for a local service.
func NewConfig() *Config {
	return &Config{
		BaseURL:  defaultBaseURL,
		Requests: defaultRequests,
		Workers:  runtime.NumCPU() * workersPerCPU,
		Timeout:  defaultTimeout,
		Limit:    defaultLimit,
		Seed:     1,
		Queries:  []string{"maize", "sofa", "tractor", "goat", "phone", "seeds", ""},
		Hubs:     []string{"marketplace", "wholesale", "services"},
		Counties: []string{"", "Nairobi", "Nyeri", "Kisumu", "Mombasa"},
	}
}

// Stats holds run statistics.
type Stats struct {
	Sent       int
	Succeeded  int
	Failed     int
	Violations int
	Listings   int
	Duration   time.Duration
}
