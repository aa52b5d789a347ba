package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/http/api"
	service "github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/app"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	result service.SearchResult
	err    error
	last   service.SearchRequest
	calls  int
}

func (m *mockDeps) Search(_ context.Context, req service.SearchRequest) (service.SearchResult, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return service.SearchResult{}, m.err
	}
	return m.result, nil
}

func (m *mockDeps) GetStats() map[string]any {
	return map[string]any{"started": true, "queueLength": 3}
}

func newTestServer(deps *mockDeps) (http.Handler, *metrics.Aggregator) {
	agg := metrics.NewAggregator(metrics.WithNamespace("test"))
	agg.Increment("search.requests", nil)
	reg, err := metrics.NewRegistry(agg)
	if err != nil {
		panic(err)
	}
	return api.NewServer(deps, agg, reg).Routes(), agg
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSearchEndpoint(t *testing.T) {
	Convey("Given a server backed by a search service", t, func() {
		deps := &mockDeps{result: service.SearchResult{
			Strategy: "full",
			Hub:      "wholesale",
			County:   "Nyeri",
			Query:    "maize",
			Listings: []model.RankedListing{
				{Listing: model.Listing{ID: "a", Title: "Maize Seeds"}, MatchScore: 141},
				{Listing: model.Listing{ID: "b", Title: "Maize grain"}, MatchScore: 126},
			},
		}}
		h, agg := newTestServer(deps)

		Convey("When searching with every parameter", func() {
			rec := do(h, http.MethodGet, "/api/search?query=+maize+&hub=wholesale&county=Nyeri&limit=2&offset=4")

			Convey("Then the request is forwarded as typed values", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.last, ShouldResemble, service.SearchRequest{
					Query: "maize", Hub: "wholesale", County: "Nyeri", Limit: 2, Offset: 4,
				})
			})

			Convey("And the ranked page is returned", func() {
				body := decode(t, rec)
				So(body["success"], ShouldEqual, true)
				So(body["strategy"], ShouldEqual, "full")
				So(body["total"], ShouldEqual, 2)
				listings := body["listings"].([]any)
				So(listings, ShouldHaveLength, 2)
				So(listings[0].(map[string]any)["matchScore"], ShouldEqual, 141)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			})

			Convey("And the request is counted", func() {
				labels := metrics.Labels{"endpoint": "search", "method": "GET", "status": "200"}
				So(agg.Counter(api.MetricHTTPRequests, labels), ShouldEqual, 1)
				So(agg.Snapshot().Latencies[metrics.Key(api.MetricHTTPLatency, metrics.Labels{"endpoint": "search", "method": "GET"})].Count, ShouldEqual, 1)
			})
		})

		Convey("When no hub is given", func() {
			do(h, http.MethodGet, "/api/search?query=sofa")

			Convey("Then the marketplace hub is used", func() {
				So(deps.last.Hub, ShouldEqual, "marketplace")
				So(deps.last.Limit, ShouldEqual, 0)
			})
		})

		Convey("When limit is not a number", func() {
			rec := do(h, http.MethodGet, "/api/search?limit=ten")

			Convey("Then the request is rejected before searching", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.calls, ShouldEqual, 0)
				body := decode(t, rec)
				So(body["success"], ShouldEqual, false)
				So(body["error"], ShouldContainSubstring, "limit")
				So(agg.Counter(api.MetricHTTPErrors, metrics.Labels{
					"endpoint": "search", "error_type": "client_error", "severity": "medium",
				}), ShouldEqual, 1)
			})
		})

		Convey("When the search fails", func() {
			deps.err = errors.New(`relation "listings" does not exist`)
			rec := do(h, http.MethodGet, "/api/search?query=maize")

			Convey("Then a 500 failure envelope is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				body := decode(t, rec)
				So(body["success"], ShouldEqual, false)
				So(body["error"], ShouldContainSubstring, "search failed")
				So(agg.Counter(api.MetricHTTPErrors, metrics.Labels{
					"endpoint": "search", "error_type": "server_error", "severity": "high",
				}), ShouldEqual, 1)
			})
		})

		Convey("When the search finds nothing", func() {
			deps.result = service.SearchResult{Strategy: "minimal", Hub: "marketplace"}
			rec := do(h, http.MethodGet, "/api/search")

			Convey("Then listings is an empty array", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"listings":[]`)
				So(decode(t, rec)["total"], ShouldEqual, 0)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a server", t, func() {
		h, _ := newTestServer(&mockDeps{})

		Convey("When checking health", func() {
			rec := do(h, http.MethodGet, "/healthz")

			Convey("Then it reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decode(t, rec)["status"], ShouldEqual, "ok")
			})
		})

		Convey("When reading stats", func() {
			rec := do(h, http.MethodGet, "/stats")

			Convey("Then service stats and the metrics snapshot are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := decode(t, rec)
				So(body["service"].(map[string]any)["queueLength"], ShouldEqual, 3)
				counters := body["metrics"].(map[string]any)["counters"].(map[string]any)
				So(counters["search.requests"], ShouldEqual, 1)
			})
		})

		Convey("When scraping metrics", func() {
			rec := do(h, http.MethodGet, "/metrics")
			raw, _ := io.ReadAll(rec.Body)

			Convey("Then the aggregator is exported in Prometheus format", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(string(raw), ShouldContainSubstring, "test_search_requests 1")
				So(string(raw), ShouldContainSubstring, "go_goroutines")
			})
		})

		Convey("When calling an unknown route", func() {
			rec := do(h, http.MethodGet, "/nope")

			Convey("Then a JSON 404 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(decode(t, rec)["success"], ShouldEqual, false)
			})
		})

		Convey("When using the wrong method", func() {
			rec := do(h, http.MethodPost, "/api/search")

			Convey("Then a JSON 405 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(strings.Contains(rec.Body.String(), "method not allowed"), ShouldBeTrue)
			})
		})
	})
}

func TestWrapKind(t *testing.T) {
	cause := errors.New("boom")
	err := api.WrapKind("search", api.ErrSearchFailed, cause)

	if !errors.Is(err, api.ErrSearchFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to be matchable, got %v", err)
	}
	if got := err.Error(); got != "search: search failed: boom" {
		t.Errorf("unexpected message %q", got)
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Op != "search" {
		t.Errorf("expected *api.Error with op, got %#v", err)
	}

	if got := api.NewKind("route", api.ErrBadRequest).Error(); got != "route: bad request" {
		t.Errorf("unexpected message %q", got)
	}
}
