package promo

import (
	"bytes"
	"sort"
)

// Scored is a candidate annotated with its raw discount.
type Scored struct {
	Candidate
	Discount Money
}

// Resolve picks the single winning combo among the scored candidates.
// Zero-discount candidates are discarded; the rest are ordered by priority
// descending, then larger discount, then earliest start date (long-running
// promotions win), then construct id ascending for determinism. Returns nil
// when nothing survives.
func Resolve(scored []Scored) *Scored {
	live := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Discount > 0 {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		a, b := live[i], live[j]
		if a.Construct.Priority != b.Construct.Priority {
			return a.Construct.Priority > b.Construct.Priority
		}
		if a.Discount != b.Discount {
			return a.Discount > b.Discount
		}
		if !a.Construct.StartsAt.Equal(b.Construct.StartsAt) {
			return a.Construct.StartsAt.Before(b.Construct.StartsAt)
		}
		return bytes.Compare(a.Construct.ID[:], b.Construct.ID[:]) < 0
	})
	winner := live[0]
	return &winner
}
