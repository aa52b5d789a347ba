package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	service "github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/app"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

const defaultHub = "marketplace"

// Searcher runs searches.
type Searcher interface {
	Search(ctx context.Context, req service.SearchRequest) (service.SearchResult, error)
}

// SearchHandler handles search requests.
type SearchHandler struct {
	searcher Searcher
	logger   logger.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher Searcher, l logger.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger.OrNop(l)}
}

type searchResponse struct {
	Success  bool                  `json:"success"`
	Strategy string                `json:"strategy"`
	Hub      string                `json:"hub"`
	County   string                `json:"county"`
	Query    string                `json:"query"`
	Total    int                   `json:"total"`
	Listings []model.RankedListing `json:"listings"`
}

// HandleSearch handles GET /api/search?query=&hub=&county=&limit=&offset=.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		writeFailure(w, statusFor(err), err)
		return
	}

	res, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "search request failed", logger.Error(err))
		writeFailure(w, http.StatusInternalServerError, WrapKind("search", ErrSearchFailed, err))
		return
	}

	listings := res.Listings
	if listings == nil {
		listings = []model.RankedListing{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Success:  true,
		Strategy: res.Strategy,
		Hub:      res.Hub,
		County:   res.County,
		Query:    res.Query,
		Total:    res.Total(),
		Listings: listings,
	})
}

func parseSearchRequest(r *http.Request) (service.SearchRequest, error) {
	q := r.URL.Query()
	req := service.SearchRequest{
		Query:  strings.TrimSpace(q.Get("query")),
		Hub:    strings.TrimSpace(q.Get("hub")),
		County: strings.TrimSpace(q.Get("county")),
	}
	if req.Hub == "" {
		req.Hub = defaultHub
	}

	var err error
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		return req, WrapKind("parse limit", ErrBadRequest, err)
	}
	if req.Offset, err = intParam(q.Get("offset")); err != nil {
		return req, WrapKind("parse offset", ErrBadRequest, err)
	}
	return req, nil
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
