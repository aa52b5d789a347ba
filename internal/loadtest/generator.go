package loadtest

import (
	"math/rand"
	"net/url"
	"strconv"
)

// searchCase is one generated request.
type searchCase struct {
	Query  string
	Hub    string
	County string
	Limit  int
	Offset int
}

func (c searchCase) values() url.Values {
	v := url.Values{}
	v.Set("query", c.Query)
	v.Set("hub", c.Hub)
	if c.County != "" {
		v.Set("county", c.County)
	}
	v.Set("limit", strconv.Itoa(c.Limit))
	v.Set("offset", strconv.Itoa(c.Offset))
	return v
}

// generateCases builds cfg.Requests searches from the configured pools.
// The same seed always yields the same sequence.
func generateCases(cfg *Config) []searchCase {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible traffic, not security sensitive
	cases := make([]searchCase, cfg.Requests)
	for i := range cases {
		cases[i] = searchCase{
			Query:  pick(rng, cfg.Queries),
			Hub:    pick(rng, cfg.Hubs),
			County: pick(rng, cfg.Counties),
			Limit:  cfg.Limit,
			// mostly first page, some deeper pages
			Offset: rng.Intn(3) * cfg.Limit,
		}
	}
	return cases
}

func pick(rng *rand.Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}
