// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	service "github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/app"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Search(ctx context.Context, req service.SearchRequest) (service.SearchResult, error)
	StatsProvider
}

// Server wires HTTP routes for the search API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	searchHandler  *SearchHandler
	metricsHandler http.Handler

	metrics *metrics.Aggregator
	logger  logger.Logger
}

// NewServer creates a new API server with all handlers. gatherer backs
// /metrics and agg receives the HTTP request metrics.
func NewServer(deps Dependencies, agg *metrics.Aggregator, gatherer prometheus.Gatherer, opts ...Option) *Server {
	s := &Server{
		metrics: agg,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewAggregator()
	}
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps, s.metrics)
	s.searchHandler = NewSearchHandler(deps, s.logger)
	s.metricsHandler = newMetricsHandler(gatherer)
	return s
}

// Routes returns the router with every endpoint registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.instrument(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", s.instrument(s.statsHandler.HandleStats, "stats"))
	r.Get("/api/search", s.instrument(s.searchHandler.HandleSearch, "search"))
	r.Method(http.MethodGet, "/metrics", s.metricsHandler)

	r.NotFound(s.instrument(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, NewKind("route", errNotFound))
	}, "not_found"))
	r.MethodNotAllowed(s.instrument(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, NewKind("route", errMethodNotAllowed))
	}, "method_not_allowed"))
	return r
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, failureResponse{Success: false, Error: msg})
}
