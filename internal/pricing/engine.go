package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value stored in minor units.
type Money = int64

// Input carries the components of an order price computation. Discounts come
// from the promotion engine; the surcharges are request-level add-ons.
type Input struct {
	ItemsPrice     Money
	ComboDiscount  Money
	CouponDiscount Money
	PackingPrice   Money
	GiftWrapPrice  Money
	ShippingPrice  Money
	TaxBps         int
}

// Breakdown aggregates the priced order. TotalPrice never goes below zero;
// the discounts are clamped instead.
type Breakdown struct {
	ItemsPrice     Money
	ComboDiscount  Money
	CouponDiscount Money
	PackingPrice   Money
	GiftWrapPrice  Money
	ShippingPrice  Money
	TaxPrice       Money
	TotalPrice     Money
}

// Compute assembles the final breakdown. The combo discount is clamped to
// the items price and the coupon discount to whatever remains, so the
// discounted base cannot be negative. Tax applies to the discounted base.
func Compute(in Input) Breakdown {
	items := in.ItemsPrice
	if items < 0 {
		items = 0
	}
	combo := clamp(in.ComboDiscount, items)
	coupon := clamp(in.CouponDiscount, items-combo)
	base := items - combo - coupon

	packing := nonNegative(in.PackingPrice)
	giftWrap := nonNegative(in.GiftWrapPrice)
	shipping := nonNegative(in.ShippingPrice)

	var tax Money
	if in.TaxBps > 0 {
		// Half-up, rounded once on the final amount like every other leg.
		tax = decimal.NewFromInt(base).
			Mul(decimal.NewFromInt(int64(in.TaxBps))).
			Div(decimal.NewFromInt(10000)).
			Round(0).
			IntPart()
	}

	total := base + packing + giftWrap + shipping + tax
	if total < 0 {
		total = 0
	}
	return Breakdown{
		ItemsPrice:     items,
		ComboDiscount:  combo,
		CouponDiscount: coupon,
		PackingPrice:   packing,
		GiftWrapPrice:  giftWrap,
		ShippingPrice:  shipping,
		TaxPrice:       tax,
		TotalPrice:     total,
	}
}

func clamp(v, max Money) Money {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func nonNegative(v Money) Money {
	if v < 0 {
		return 0
	}
	return v
}
