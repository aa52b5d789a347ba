// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a marketplace listing as fetched from storage. Ranking reads it
// and never mutates it.
type Listing struct {
	ID          string          `json:"id"`
	Hub         string          `json:"hub,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	County      string          `json:"county"`
	Price       decimal.Decimal `json:"price"`
	Views       int64           `json:"views"`
	CreatedAt   time.Time       `json:"createdAt"` // zero when unknown
	UpdatedAt   time.Time       `json:"updatedAt"` // zero when unknown
	SellerID    string          `json:"sellerId"`
}

// RankedListing is a Listing augmented with its composite ranking score.
type RankedListing struct {
	Listing
	MatchScore int `json:"matchScore"`
}

// AccountStatus is the lifecycle state of a seller account.
type AccountStatus string

// Account states.
const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

// Seller carries the trust attributes used by ranking.
type Seller struct {
	ID            string        `json:"id"`
	Verified      bool          `json:"verified"`
	AccountStatus AccountStatus `json:"accountStatus"`
	JoinDate      time.Time     `json:"joinDate"` // zero when unknown
}

// MatchContext is the immutable per-search ranking context.
type MatchContext struct {
	Query  string // free text, may be empty
	County string // optional region filter
}
