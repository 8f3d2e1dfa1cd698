package promo

import (
	"time"

	"github.com/google/uuid"
)

// ClaimedLine records how much of a cart line a construct would discount.
// Line is the index into the evaluated cart slice.
type ClaimedLine struct {
	Line int
	Qty  int32
}

// Claim is the subset of the cart a matched construct discounts. Claims of
// different candidates may overlap; the stacking resolver picks one winner.
type Claim struct {
	Lines []ClaimedLine
}

// Sum returns the price of the claimed quantities.
func (c Claim) Sum(cart []CartLine) Money {
	var total Money
	for _, cl := range c.Lines {
		if cl.Line < 0 || cl.Line >= len(cart) {
			continue
		}
		total += Money(cl.Qty) * cart[cl.Line].UnitPrice
	}
	return total
}

// Candidate pairs a matched construct with its claim.
type Candidate struct {
	Construct Construct
	Claim     Claim
}

// matcher decides whether a cart satisfies one construct kind. Keeping one
// implementation per kind keeps the eligibility rules exhaustive.
type matcher interface {
	match(cart []CartLine, c Construct) (Claim, bool)
}

var matchers = map[Kind]matcher{
	KindFixedSet:      fixedSetMatcher{},
	KindCategoryQuota: categoryQuotaMatcher{},
	KindAnyN:          anyNMatcher{},
}

// Match reports whether the cart satisfies the construct's shape and, if so,
// which lines it claims.
func Match(cart []CartLine, c Construct) (Claim, bool) {
	m, ok := matchers[c.Kind]
	if !ok {
		return Claim{}, false
	}
	return m.match(cart, c)
}

// MatchAll evaluates every construct active at the given instant against the
// cart and returns the satisfied candidates.
func MatchAll(cart []CartLine, constructs []Construct, now time.Time) []Candidate {
	var out []Candidate
	for _, c := range constructs {
		if !c.ActiveAt(now) {
			continue
		}
		claim, ok := Match(cart, c)
		if !ok {
			continue
		}
		out = append(out, Candidate{Construct: c, Claim: claim})
	}
	return out
}

type fixedSetMatcher struct{}

// match requires every (product, variant) of the set to appear with at least
// the required quantity. Unrelated cart lines do not disqualify the match;
// only the required quantities are claimed.
func (fixedSetMatcher) match(cart []CartLine, c Construct) (Claim, bool) {
	var claim Claim
	for _, req := range c.Items {
		idx := -1
		for i, line := range cart {
			if line.ProductID == req.ProductID && line.VariantKey == req.VariantKey {
				idx = i
				break
			}
		}
		if idx < 0 || cart[idx].Qty < req.Qty {
			return Claim{}, false
		}
		claim.Lines = append(claim.Lines, ClaimedLine{Line: idx, Qty: req.Qty})
	}
	return claim, true
}

type categoryQuotaMatcher struct{}

func (categoryQuotaMatcher) match(cart []CartLine, c Construct) (Claim, bool) {
	var claim Claim
	var count int32
	for i, line := range cart {
		if line.Qty <= 0 || !lineInCategories(line, c.CategoryIDs) {
			continue
		}
		count += line.Qty
		claim.Lines = append(claim.Lines, ClaimedLine{Line: i, Qty: line.Qty})
	}
	if count < c.MinItems {
		return Claim{}, false
	}
	return claim, true
}

type anyNMatcher struct{}

func (anyNMatcher) match(cart []CartLine, c Construct) (Claim, bool) {
	var claim Claim
	var count int32
	for i, line := range cart {
		if line.Qty <= 0 {
			continue
		}
		count += line.Qty
		claim.Lines = append(claim.Lines, ClaimedLine{Line: i, Qty: line.Qty})
	}
	if count < c.MinProducts {
		return Claim{}, false
	}
	return claim, true
}

func lineInCategories(line CartLine, categories []uuid.UUID) bool {
	for _, want := range categories {
		for _, have := range line.CategoryIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}
