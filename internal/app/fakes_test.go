package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/adapters/repository"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
)

var errColumnMissing = errors.New(`ERROR: column "view_count" does not exist (SQLSTATE 42703)`)

// fakeListings answers per variant name; a variant without an entry in
// errs returns listings.
type fakeListings struct {
	mu       sync.Mutex
	listings []model.Listing
	errs     map[string]error
	tried    []string
	queries  []repository.ListingQuery
}

func (f *fakeListings) FindListings(_ context.Context, v repository.QueryVariant, q repository.ListingQuery) ([]model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tried = append(f.tried, v.Name)
	f.queries = append(f.queries, q)
	if err, ok := f.errs[v.Name]; ok {
		return nil, err
	}
	return f.listings, nil
}

func (f *fakeListings) lastQuery() repository.ListingQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type fakeSellers struct {
	mu      sync.Mutex
	sellers []model.Seller
	err     error
	asked   [][]string
}

func (f *fakeSellers) SellersByID(_ context.Context, ids []string) ([]model.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.asked = append(f.asked, ids)
	if f.err != nil {
		return nil, f.err
	}
	return f.sellers, nil
}
