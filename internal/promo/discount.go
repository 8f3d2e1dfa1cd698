package promo

import "github.com/shopspring/decimal"

// Discount computes the raw discount a matched candidate would grant. The
// amount never exceeds the claimed lines' price sum, so an applied discount
// cannot push a line set below zero.
func Discount(cart []CartLine, cand Candidate) Money {
	claimed := cand.Claim.Sum(cart)
	if claimed <= 0 {
		return 0
	}
	c := cand.Construct
	switch c.Mode {
	case ModeFixedDiscount:
		return clampMoney(c.DiscountValue, claimed)
	case ModeBundlePrice:
		if c.BundlePrice >= claimed {
			return 0
		}
		return claimed - c.BundlePrice
	case ModePercentCap:
		d := percentOf(claimed, c.PercentBps)
		if c.Cap > 0 && d > c.Cap {
			d = c.Cap
		}
		return clampMoney(d, claimed)
	default:
		return 0
	}
}

// percentOf applies a basis-point percentage to an amount, rounding half-up
// to the minor unit. Rounding happens once, here, never on intermediates.
func percentOf(amount Money, bps int32) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	d := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt32(bps)).
		Div(decimal.NewFromInt(10000))
	// decimal.Round is half away from zero, which is half-up for the
	// non-negative amounts handled here.
	return d.Round(0).IntPart()
}

func clampMoney(v, max Money) Money {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
