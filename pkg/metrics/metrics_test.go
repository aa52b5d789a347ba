package metrics

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKey(t *testing.T) {
	Convey("Given series names and labels", t, func() {
		Convey("When labels are absent or empty", func() {
			Convey("Then the key is the bare name", func() {
				So(Key("search.requests", nil), ShouldEqual, "search.requests")
				So(Key("search.requests", Labels{}), ShouldEqual, "search.requests")
			})
		})

		Convey("When labels are given in any order", func() {
			Convey("Then keys are sorted alphabetically", func() {
				So(Key("x", Labels{"b": "1", "a": "2"}), ShouldEqual, "x{a=2,b=1}")
				So(Key("x", Labels{"a": "2", "b": "1"}), ShouldEqual, "x{a=2,b=1}")
			})
		})
	})
}

func TestAggregatorCounters(t *testing.T) {
	Convey("Given a new aggregator", t, func() {
		a := NewAggregator()

		Convey("When incrementing with the same labels in a different order", func() {
			a.Increment("x", Labels{"b": "1", "a": "2"})
			a.Increment("x", Labels{"a": "2", "b": "1"})

			Convey("Then both writes land in one series", func() {
				snap := a.Snapshot()
				So(snap.Counters, ShouldHaveLength, 1)
				So(snap.Counters["x{a=2,b=1}"], ShouldEqual, 2)
			})
		})

		Convey("When adding negative deltas", func() {
			a.Add("events.queue_depth", nil, 5)
			a.Add("events.queue_depth", nil, -3)

			Convey("Then the series behaves like a gauge", func() {
				So(a.Counter("events.queue_depth", nil), ShouldEqual, 2)
			})
		})

		Convey("When reading a series that was never written", func() {
			Convey("Then it reports zero", func() {
				So(a.Counter("missing", nil), ShouldEqual, 0)
			})
		})

		Convey("When incrementing concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						a.Increment("hits", nil)
					}
				}()
			}
			wg.Wait()

			Convey("Then no increment is lost", func() {
				So(a.Counter("hits", nil), ShouldEqual, 5000)
			})
		})
	})
}

func TestAggregatorLatency(t *testing.T) {
	Convey("Given an aggregator", t, func() {
		a := NewAggregator()

		Convey("When recording 10, 20, ..., 1000", func() {
			for i := 1; i <= 100; i++ {
				a.RecordLatency("search.latency", float64(i*10), nil)
			}
			s := a.Snapshot().Latencies["search.latency"]

			Convey("Then percentiles index floor(n*p) of the sorted samples", func() {
				So(s.Count, ShouldEqual, 100)
				So(s.P95, ShouldEqual, 960) // sorted[95]
				So(s.P99, ShouldEqual, 1000)
				So(s.Max, ShouldEqual, 1000)
				So(s.Avg, ShouldEqual, 505)
			})
		})

		Convey("When the mean has more than two decimals", func() {
			a.RecordLatency("rounding", 1, nil)
			a.RecordLatency("rounding", 1, nil)
			a.RecordLatency("rounding", 2, nil)

			Convey("Then it is rounded to two places", func() {
				So(a.Snapshot().Latencies["rounding"].Avg, ShouldEqual, 1.33)
			})
		})

		Convey("When non-finite samples are recorded", func() {
			a.RecordLatency("guarded", 5, nil)
			a.RecordLatency("guarded", nan(), nil)
			a.RecordLatency("guarded", inf(), nil)

			Convey("Then they are ignored", func() {
				So(a.Snapshot().Latencies["guarded"].Count, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an aggregator retaining 3 samples", t, func() {
		a := NewAggregator(WithMaxSamples(3))

		Convey("When recording 5 samples", func() {
			for _, v := range []float64{1, 2, 3, 4, 5} {
				a.RecordLatency("l", v, Labels{"hub": "wholesale"})
			}
			s := a.Snapshot().Latencies["l{hub=wholesale}"]

			Convey("Then only the most recent 3 are kept", func() {
				So(s.Count, ShouldEqual, 3)
				So(s.Avg, ShouldEqual, 4)
				So(s.Max, ShouldEqual, 5)
			})
		})
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given an empty series", t, func() {
		Convey("Then every field is zero", func() {
			So(Summarize(nil), ShouldResemble, LatencySummary{})
		})
	})

	Convey("Given a single sample", t, func() {
		s := Summarize([]float64{42})
		Convey("Then every percentile clamps to it", func() {
			So(s, ShouldResemble, LatencySummary{Count: 1, Avg: 42, P95: 42, P99: 42, Max: 42})
		})
	})
}

func TestSnapshotIsolation(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		a := NewAggregator()
		a.Increment("c", nil)
		snap := a.Snapshot()

		Convey("When the snapshot map is mutated", func() {
			snap.Counters["c"] = 100
			snap.Counters["injected"] = 1

			Convey("Then the aggregator is unaffected", func() {
				So(a.Counter("c", nil), ShouldEqual, 1)
				So(a.Snapshot().Counters, ShouldNotContainKey, "injected")
			})
		})

		Convey("Then the boot time is stable across snapshots", func() {
			So(a.Snapshot().BootedAt.Equal(snap.BootedAt), ShouldBeTrue)
		})
	})
}

func TestPrometheusExport(t *testing.T) {
	Convey("Given an aggregator with counters and latencies", t, func() {
		a := NewAggregator(WithNamespace("test"))
		a.Add("search.requests", nil, 2)
		a.Increment("http.requests", Labels{"endpoint": "search", "status": "200"})
		a.Increment("http.requests", Labels{"endpoint": "stats"})
		a.RecordLatency("search.latency", 12, nil)

		Convey("When collecting a counter", func() {
			expected := `
# HELP test_search_requests Aggregated counter test_search_requests
# TYPE test_search_requests gauge
test_search_requests 2
`
			Convey("Then it is exported as a gauge with a sanitized name", func() {
				err := testutil.CollectAndCompare(a, strings.NewReader(expected), "test_search_requests")
				So(err, ShouldBeNil)
			})
		})

		Convey("When series of one family carry different label sets", func() {
			reg, err := NewRegistry(a)
			So(err, ShouldBeNil)
			families, err := reg.Gather()

			Convey("Then gathering succeeds with padded label dimensions", func() {
				So(err, ShouldBeNil)
				names := map[string]int{}
				for _, mf := range families {
					names[mf.GetName()] = len(mf.GetMetric())
				}
				So(names["test_http_requests"], ShouldEqual, 2)
				So(names["test_search_latency_milliseconds"], ShouldEqual, 1)
			})
		})
	})
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"search.requests":  "search_requests",
		"events.queue-len": "events_queue_len",
		"9lives":           "_9lives",
		"ok_name":          "ok_name",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }
