package api

import (
	"net/http"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	metrics       *metrics.Aggregator
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, agg *metrics.Aggregator) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, metrics: agg}
}

type statsResponse struct {
	Service map[string]any   `json:"service"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Service: h.statsProvider.GetStats(),
		Metrics: h.metrics.Snapshot(),
	})
}
