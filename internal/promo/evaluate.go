package promo

import (
	"errors"
	"time"
)

// ErrStackingDenied is returned when a coupon is supplied alongside a winning
// combo that forbids stacking. The coupon is rejected loudly rather than
// silently dropped so the caller can inform the customer.
var ErrStackingDenied = errors.New("coupon cannot be stacked with the applied combo")

// Result is the outcome of a pure evaluation pass. A nil Winner with zero
// discounts simply means no promotion applied; that is not an error.
type Result struct {
	Winner         *Scored
	ComboDiscount  Money
	CouponDiscount Money
	CouponCode     string
}

// Engine evaluates promotions over immutable snapshots. It holds no state
// beyond the clock and is safe for concurrent use.
type Engine struct {
	Now func() time.Time
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Evaluate matches the active constructs against the cart, resolves the
// winning combo, and applies the coupon when stacking permits. It performs
// no side effects; usage counters are only consumed later at reservation.
func (e Engine) Evaluate(cart []CartLine, constructs []Construct, coupon *Coupon) (Result, error) {
	now := e.now()

	candidates := MatchAll(cart, constructs, now)
	scored := make([]Scored, 0, len(candidates))
	for _, cand := range candidates {
		scored = append(scored, Scored{Candidate: cand, Discount: Discount(cart, cand)})
	}
	winner := Resolve(scored)

	res := Result{Winner: winner}
	if winner != nil {
		res.ComboDiscount = winner.Discount
	}

	if coupon == nil {
		return res, nil
	}
	if winner != nil && !winner.Construct.AllowCouponStacking {
		return Result{}, ErrStackingDenied
	}
	if err := coupon.CheckWindow(now); err != nil {
		return Result{}, err
	}
	res.CouponDiscount = CouponDiscount(CouponBase(cart, res.ComboDiscount), *coupon)
	res.CouponCode = coupon.Code
	return res, nil
}

// CouponBase is the amount a coupon discounts against: the items total after
// the combo discount, floored at zero. This mirrors the clamp order used when
// the order is finally priced (combo against items, then coupon against the
// remainder), so the coupon computed here never exceeds what the priced order
// will honour. Keep the two in step if either changes.
func CouponBase(cart []CartLine, comboDiscount Money) Money {
	base := ItemsTotal(cart) - comboDiscount
	if base < 0 {
		return 0
	}
	return base
}
