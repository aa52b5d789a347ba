package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/repository"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/ranking"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

// Metric series written by the search path.
const (
	MetricSearchRequests     = "search.requests"
	MetricSearchErrors       = "search.errors"
	MetricSearchLatency      = "search.latency"
	MetricSellerLookupErrors = "search.seller_lookup_errors"
	MetricSearchByHub        = "search.by_hub"
	MetricSearchZeroResults  = "search.zero_results"
)

// minWindow is the smallest number of candidates fetched for ranking.
const minWindow = 30

// SearchRequest is one search call.
type SearchRequest struct {
	Query  string
	Hub    string
	County string
	Limit  int
	Offset int
}

// SearchResult is the ranked page for a SearchRequest.
type SearchResult struct {
	Strategy string                `json:"strategy"`
	Hub      string                `json:"hub"`
	County   string                `json:"county"`
	Query    string                `json:"query"`
	Listings []model.RankedListing `json:"listings"`
}

// Total returns the number of listings in the page.
func (r SearchResult) Total() int {
	return len(r.Listings)
}

// IsSchemaMismatch reports whether err reads like a missing column error.
func IsSchemaMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")
}

// Search over-fetches candidates, ranks them and returns the first page.
// Each successful call emits exactly one SEARCH event.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	start := time.Now()

	limit := s.normalizeLimit(req.Limit)
	offset := max(req.Offset, 0)
	hub := strings.TrimSpace(req.Hub)
	if hub == "" {
		hub = defaultHub
	}
	window := max(limit*3, minWindow)

	q := repository.ListingQuery{
		Hub:    hub,
		Status: s.listingStatus,
		County: strings.TrimSpace(req.County),
		Text:   req.Query,
		From:   offset,
		To:     offset + window - 1,
	}
	listings, strategy, err := s.fetchListings(ctx, q)
	if err != nil {
		s.metrics.Increment(MetricSearchErrors, nil)
		s.logger.Error(ctx, "search failed",
			logger.String("query", req.Query),
			logger.String("hub", hub),
			logger.Error(err),
		)
		return SearchResult{}, err
	}

	sellers := s.resolveSellers(ctx, listings)
	ranked := ranking.RankAt(s.now(), listings, sellers, model.MatchContext{Query: req.Query, County: req.County})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := SearchResult{
		Strategy: strategy,
		Hub:      hub,
		County:   req.County,
		Query:    req.Query,
		Listings: ranked,
	}

	s.metrics.Increment(MetricSearchRequests, nil)
	s.metrics.RecordLatency(MetricSearchLatency, float64(time.Since(start).Microseconds())/1000, nil)
	_, err = s.events.Emit(ctx, model.EventSearch, s.eventSource, map[string]any{
		"query":       req.Query,
		"hub":         hub,
		"county":      req.County,
		"limit":       limit,
		"offset":      offset,
		"strategy":    strategy,
		"resultCount": result.Total(),
	})
	if err != nil {
		s.logger.Warn(ctx, "search event not emitted", logger.Error(err))
	}

	return result, nil
}

func (s *Service) normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}

// fetchListings tries each query variant in order. Only schema mismatches
// fall through to the next variant.
func (s *Service) fetchListings(ctx context.Context, q repository.ListingQuery) ([]model.Listing, string, error) {
	if len(s.variants) == 0 {
		return nil, "", repository.ErrNoVariants
	}

	var lastErr error
	for _, v := range s.variants {
		listings, err := s.listings.FindListings(ctx, v, q)
		if err == nil {
			return listings, v.Name, nil
		}
		if !s.isSchemaMismatch(err) {
			return nil, v.Name, fmt.Errorf("search variant %s: %w", v.Name, err)
		}
		s.logger.Warn(ctx, "query variant does not match schema, falling back",
			logger.String("variant", v.Name),
			logger.Error(err),
		)
		lastErr = err
	}
	return nil, "", fmt.Errorf("search: all %d query variants failed: %w", len(s.variants), lastErr)
}

// resolveSellers loads the sellers behind listings. A lookup failure is
// counted and ranking proceeds without seller trust.
func (s *Service) resolveSellers(ctx context.Context, listings []model.Listing) []model.Seller {
	if s.sellers == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(listings))
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		if l.SellerID == "" {
			continue
		}
		if _, ok := seen[l.SellerID]; ok {
			continue
		}
		seen[l.SellerID] = struct{}{}
		ids = append(ids, l.SellerID)
	}
	if len(ids) == 0 {
		return nil
	}

	sellers, err := s.sellers.SellersByID(ctx, ids)
	if err != nil {
		s.metrics.Increment(MetricSellerLookupErrors, nil)
		s.logger.Warn(ctx, "seller lookup failed, ranking without seller trust",
			logger.Int("sellers", len(ids)),
			logger.Error(err),
		)
		return nil
	}
	return sellers
}
