// Package ranking scores and orders candidate listings for a search.
//
// The score is a plain sum of fixed integer points per signal so it stays
// auditable and tunable by editing the constants below. Scoring is pure:
// the only time dependency is the explicit "now" passed to RankAt/Explain.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
)

// Text relevance points.
const (
	titleContainsPoints       = 25
	descriptionContainsPoints = 12
	categoryContainsPoints    = 10
	titlePrefixPoints         = 8
)

// Region match points.
const regionMatchPoints = 20

// Seller trust points.
const (
	verifiedPoints      = 20
	activeAccountPoints = 10
	newSellerPoints     = 2  // joined < 30 days ago, or join date unknown
	youngSellerPoints   = 6  // joined < 180 days ago
	establishedPoints   = 10 // everyone else
	newSellerDays       = 30
	youngSellerDays     = 180
)

// Recency points by listing age in hours.
const (
	dayOldPoints   = 30
	threeDayPoints = 20
	weekOldPoints  = 12
	stalePoints    = 4
	dayHours       = 24
	threeDayHours  = 72
	weekHours      = 168
)

// Engagement points by view count.
const (
	lowViewPoints     = 3
	someViewPoints    = 8
	popularViewPoints = 14
	hotViewPoints     = 18
	someViews         = 20
	popularViews      = 100
	hotViews          = 500
)

const hoursPerDay = 24

// staleAge is used when a listing carries no usable date.
const staleAge = math.MaxFloat64

// Breakdown lists the points contributed by each signal.
type Breakdown struct {
	Text       int `json:"text"`
	Region     int `json:"region"`
	Trust      int `json:"trust"`
	Recency    int `json:"recency"`
	Engagement int `json:"engagement"`
}

// Total is the composite match score.
func (b Breakdown) Total() int {
	return b.Text + b.Region + b.Trust + b.Recency + b.Engagement
}

// Rank scores listings against mc at the current time. See RankAt.
func Rank(listings []model.Listing, sellers []model.Seller, mc model.MatchContext) []model.RankedListing {
	return RankAt(time.Now(), listings, sellers, mc)
}

// RankAt returns every listing with its MatchScore, ordered by score
// descending. The sort is stable: equal scores keep their input order.
func RankAt(now time.Time, listings []model.Listing, sellers []model.Seller, mc model.MatchContext) []model.RankedListing {
	bySeller := make(map[string]*model.Seller, len(sellers))
	for i := range sellers {
		if sellers[i].ID != "" {
			bySeller[sellers[i].ID] = &sellers[i]
		}
	}

	ranked := make([]model.RankedListing, len(listings))
	for i, l := range listings {
		ranked[i] = model.RankedListing{
			Listing:    l,
			MatchScore: Explain(l, bySeller[l.SellerID], mc, now).Total(),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})
	return ranked
}

// Explain computes the per-signal points for one listing. seller may be nil.
func Explain(l model.Listing, seller *model.Seller, mc model.MatchContext, now time.Time) Breakdown { //nolint:gocritic // hugeParam: listings are passed by value across the package
	return Breakdown{
		Text:       textPoints(l, mc.Query),
		Region:     regionPoints(l.County, mc.County),
		Trust:      trustPoints(seller, now),
		Recency:    recencyPoints(ageHours(l, now)),
		Engagement: engagementPoints(l.Views),
	}
}

func textPoints(l model.Listing, query string) int { //nolint:gocritic // hugeParam
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	title := strings.ToLower(l.Title)

	points := 0
	if strings.Contains(title, q) {
		points += titleContainsPoints
	}
	if strings.Contains(strings.ToLower(l.Description), q) {
		points += descriptionContainsPoints
	}
	if strings.Contains(strings.ToLower(l.Category), q) {
		points += categoryContainsPoints
	}
	if strings.HasPrefix(title, q) {
		points += titlePrefixPoints
	}
	return points
}

func regionPoints(listingCounty, wanted string) int {
	wanted = strings.TrimSpace(wanted)
	if wanted == "" {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(listingCounty), wanted) {
		return regionMatchPoints
	}
	return 0
}

func trustPoints(s *model.Seller, now time.Time) int {
	if s == nil {
		return 0
	}
	points := 0
	if s.Verified {
		points += verifiedPoints
	}
	if s.AccountStatus == model.AccountActive {
		points += activeAccountPoints
	}

	if s.JoinDate.IsZero() {
		return points + newSellerPoints
	}
	days := now.Sub(s.JoinDate).Hours() / hoursPerDay
	switch {
	case days < newSellerDays:
		points += newSellerPoints
	case days < youngSellerDays:
		points += youngSellerPoints
	default:
		points += establishedPoints
	}
	return points
}

// ageHours measures from CreatedAt, falling back to UpdatedAt.
func ageHours(l model.Listing, now time.Time) float64 { //nolint:gocritic // hugeParam
	ts := l.CreatedAt
	if ts.IsZero() {
		ts = l.UpdatedAt
	}
	if ts.IsZero() {
		return staleAge
	}
	return now.Sub(ts).Hours()
}

func recencyPoints(hours float64) int {
	switch {
	case hours <= dayHours:
		return dayOldPoints
	case hours <= threeDayHours:
		return threeDayPoints
	case hours <= weekHours:
		return weekOldPoints
	default:
		return stalePoints
	}
}

func engagementPoints(views int64) int {
	switch {
	case views <= 0:
		return 0
	case views < someViews:
		return lowViewPoints
	case views < popularViews:
		return someViewPoints
	case views < hotViews:
		return popularViewPoints
	default:
		return hotViewPoints
	}
}
