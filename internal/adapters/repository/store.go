// Package repository defines the listing and seller storage contracts and
// their Postgres and Redis adapters.
package repository

import (
	"context"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
)

// ListingQuery selects a window of candidate listings. From and To are
// inclusive zero-based row positions.
type ListingQuery struct {
	Hub    string
	Status string
	// County is an optional region filter, matched case-insensitively.
	County string
	Text   string
	From   int
	To     int
}

// Limit returns the number of rows the window spans.
func (q ListingQuery) Limit() int {
	if q.To < q.From {
		return 0
	}
	return q.To - q.From + 1
}

// QueryVariant is one shape of the listing query. Stores try variants in
// order so older schemas keep working after a column rename.
type QueryVariant struct {
	Name string
	// Columns are select expressions aliased to the canonical column names.
	Columns []string
	// TextColumns are matched against ListingQuery.Text.
	TextColumns []string
	// FilterHub, FilterStatus and FilterCounty restrict results to the
	// matching ListingQuery field. Set them only when the variant's schema
	// has the column.
	FilterHub    bool
	FilterStatus bool
	FilterCounty bool
	OrderBy      string
}

// ListingStore fetches candidate listings for a search.
type ListingStore interface {
	FindListings(ctx context.Context, variant QueryVariant, q ListingQuery) ([]model.Listing, error)
}

// SellerStore resolves seller records by ID. Unknown IDs are omitted from
// the result.
type SellerStore interface {
	SellersByID(ctx context.Context, ids []string) ([]model.Seller, error)
}
