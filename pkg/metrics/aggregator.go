// Package metrics provides the in-process metrics aggregator: counters and
// latency samples keyed by a canonical name+labels series key, queryable as a
// snapshot and exportable to Prometheus.
package metrics

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Default aggregator configuration.
const (
	defaultMaxSamples = 500
	defaultNamespace  = "pambo"
)

// Percentiles reported for every latency series.
const (
	p95 = 0.95
	p99 = 0.99
)

// Labels decorate a series name. Order is irrelevant: keys are sorted when
// the canonical series key is built.
type Labels map[string]string

// LatencySummary summarizes the retained samples of one latency series.
type LatencySummary struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// Snapshot is a point-in-time copy of every series. Mutating it does not
// affect the aggregator.
type Snapshot struct {
	BootedAt  time.Time                 `json:"bootedAt"`
	Counters  map[string]int64          `json:"counters"`
	Latencies map[string]LatencySummary `json:"latencies"`
}

type counterSeries struct {
	name   string
	labels Labels
	value  int64
}

type latencySeries struct {
	name    string
	labels  Labels
	samples []float64
}

// Aggregator stores counters and bounded latency sample lists. All methods
// are safe for concurrent use and never block on I/O.
type Aggregator struct {
	mu         sync.Mutex
	bootedAt   time.Time
	maxSamples int
	namespace  string
	counters   map[string]*counterSeries
	latencies  map[string]*latencySeries
}

// NewAggregator creates an empty aggregator stamped with the current time.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		bootedAt:   time.Now().UTC(),
		maxSamples: defaultMaxSamples,
		namespace:  defaultNamespace,
		counters:   make(map[string]*counterSeries),
		latencies:  make(map[string]*latencySeries),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key builds the canonical series key: name alone, or name{k1=v1,k2=v2}
// with label keys sorted alphabetically.
func Key(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	keys := sortedKeys(labels)
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Increment adds one to the counter series.
func (a *Aggregator) Increment(name string, labels Labels) {
	a.Add(name, labels, 1)
}

// Add adds by to the counter series, creating it at zero when absent.
// Negative deltas are allowed for gauge-style series.
func (a *Aggregator) Add(name string, labels Labels, by int64) {
	key := Key(name, labels)

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.counters[key]
	if !ok {
		s = &counterSeries{name: name, labels: cloneLabels(labels)}
		a.counters[key] = s
	}
	s.value += by
}

// RecordLatency appends a millisecond sample, dropping the oldest samples
// beyond the retained maximum. NaN and infinite values are ignored.
func (a *Aggregator) RecordLatency(name string, valueMs float64, labels Labels) {
	if math.IsNaN(valueMs) || math.IsInf(valueMs, 0) {
		return
	}
	key := Key(name, labels)

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.latencies[key]
	if !ok {
		s = &latencySeries{name: name, labels: cloneLabels(labels)}
		a.latencies[key] = s
	}
	s.samples = append(s.samples, valueMs)
	if over := len(s.samples) - a.maxSamples; over > 0 {
		// copy into a fresh slice so the dropped prefix can be collected
		kept := make([]float64, a.maxSamples)
		copy(kept, s.samples[over:])
		s.samples = kept
	}
}

// Counter returns the current value of a counter series.
func (a *Aggregator) Counter(name string, labels Labels) int64 {
	key := Key(name, labels)
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.counters[key]; ok {
		return s.value
	}
	return 0
}

// Snapshot returns a copy of every series with latency summaries computed.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		BootedAt:  a.bootedAt,
		Counters:  make(map[string]int64, len(a.counters)),
		Latencies: make(map[string]LatencySummary, len(a.latencies)),
	}
	for key, s := range a.counters {
		snap.Counters[key] = s.value
	}
	for key, s := range a.latencies {
		snap.Latencies[key] = Summarize(s.samples)
	}
	return snap
}

// Summarize computes count, mean (2 decimal places), p95, p99 and max.
// Percentiles index the ascending samples at floor(n*p), clamped to the last
// index. An empty input yields a zero summary.
func Summarize(samples []float64) LatencySummary {
	n := len(samples)
	if n == 0 {
		return LatencySummary{}
	}
	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return LatencySummary{
		Count: n,
		Avg:   math.Round(sum/float64(n)*100) / 100,
		P95:   percentile(sorted, p95),
		P99:   percentile(sorted, p99),
		Max:   sorted[n-1],
	}
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func sortedKeys(labels Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneLabels(labels Labels) Labels {
	if len(labels) == 0 {
		return nil
	}
	out := make(Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
