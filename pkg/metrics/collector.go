package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Suffix appended to exported latency families.
const latencySuffix = "_milliseconds"

// family groups the series sharing one exported metric name. Label
// dimensions must be identical within a family, so every series is padded
// with empty values for the keys it lacks.
type family struct {
	name      string
	labelKeys []string
	counters  []*counterSeries
	latencies []latencyPoint
}

type latencyPoint struct {
	labels Labels
	sum    float64
	sumry  LatencySummary
}

// Describe sends nothing: series appear at runtime, which makes the
// aggregator an unchecked collector.
func (a *Aggregator) Describe(chan<- *prometheus.Desc) {}

// Collect exports counters as gauges (they may be decremented) and latency
// series as summaries with the 0.95 and 0.99 quantiles.
func (a *Aggregator) Collect(ch chan<- prometheus.Metric) {
	for _, f := range a.families() {
		if len(f.counters) > 0 {
			desc := prometheus.NewDesc(f.name, "Aggregated counter "+f.name, f.labelKeys, nil)
			for _, s := range f.counters {
				m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, float64(s.value), labelValues(f.labelKeys, s.labels)...)
				if err != nil {
					ch <- prometheus.NewInvalidMetric(desc, err)
					continue
				}
				ch <- m
			}
		}
		if len(f.latencies) > 0 {
			desc := prometheus.NewDesc(f.name, "Aggregated latency "+f.name, f.labelKeys, nil)
			for _, p := range f.latencies {
				m, err := prometheus.NewConstSummary(desc, uint64(p.sumry.Count), p.sum,
					map[float64]float64{p95: p.sumry.P95, p99: p.sumry.P99},
					labelValues(f.labelKeys, p.labels)...)
				if err != nil {
					ch <- prometheus.NewInvalidMetric(desc, err)
					continue
				}
				ch <- m
			}
		}
	}
}

// families copies the series under the lock and groups them by exported name.
func (a *Aggregator) families() []*family {
	byName := make(map[string]*family)
	get := func(name string) *family {
		f, ok := byName[name]
		if !ok {
			f = &family{name: name}
			byName[name] = f
		}
		return f
	}

	a.mu.Lock()
	for _, s := range a.counters {
		f := get(a.exportName(s.name, ""))
		f.counters = append(f.counters, &counterSeries{name: s.name, labels: s.labels, value: s.value})
	}
	for _, s := range a.latencies {
		f := get(a.exportName(s.name, latencySuffix))
		var sum float64
		for _, v := range s.samples {
			sum += v
		}
		f.latencies = append(f.latencies, latencyPoint{labels: s.labels, sum: sum, sumry: Summarize(s.samples)})
	}
	a.mu.Unlock()

	out := make([]*family, 0, len(byName))
	for _, f := range byName {
		keys := make(map[string]struct{})
		for _, s := range f.counters {
			for k := range s.labels {
				addKey(keys, k)
			}
		}
		for _, p := range f.latencies {
			for k := range p.labels {
				addKey(keys, k)
			}
		}
		for k := range keys {
			f.labelKeys = append(f.labelKeys, k)
		}
		sort.Strings(f.labelKeys)
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (a *Aggregator) exportName(name, suffix string) string {
	return a.namespace + "_" + sanitize(name) + suffix
}

func addKey(keys map[string]struct{}, k string) {
	if k = sanitize(k); k != "" {
		keys[k] = struct{}{}
	}
}

func labelValues(keys []string, labels Labels) []string {
	byKey := make(map[string]string, len(labels))
	for k, v := range labels {
		byKey[sanitize(k)] = v
	}
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = byKey[k]
	}
	return values
}

// sanitize maps a series name onto the Prometheus [a-zA-Z0-9_] alphabet.
func sanitize(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NewRegistry builds a dedicated Prometheus registry exposing the aggregator
// alongside the Go runtime and process collectors.
func NewRegistry(a *Aggregator) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		a,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegister, err)
		}
	}
	return reg, nil
}
