package loadtest

import (
	"errors"
	"fmt"
)

// Sentinel kinds reported by a run.
var (
	ErrUnhealthy   = errors.New("service unhealthy")
	ErrBadResponse = errors.New("bad search response")
	ErrViolations  = errors.New("ranking violations found")
)

// verify checks the invariants every successful search response must hold.
func verify(sc searchCase, resp searchResponse) error {
	if !resp.Success {
		return fmt.Errorf("success=false: %s", resp.Error)
	}
	if resp.Total != len(resp.Listings) {
		return fmt.Errorf("total %d does not match %d listings", resp.Total, len(resp.Listings))
	}
	if len(resp.Listings) > sc.Limit {
		return fmt.Errorf("%d listings exceed limit %d", len(resp.Listings), sc.Limit)
	}
	if resp.Hub != sc.Hub {
		return fmt.Errorf("hub %q echoed as %q", sc.Hub, resp.Hub)
	}
	for i := 1; i < len(resp.Listings); i++ {
		if resp.Listings[i].MatchScore > resp.Listings[i-1].MatchScore {
			return fmt.Errorf("listing %d (%s) outranks listing %d", i, resp.Listings[i].ID, i-1)
		}
	}
	return nil
}
