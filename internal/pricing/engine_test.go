package pricing

import "testing"

func TestComputeTotalsAllComponents(t *testing.T) {
	b := Compute(Input{
		ItemsPrice:     200_000,
		ComboDiscount:  10_000,
		CouponDiscount: 5_000,
		PackingPrice:   2_000,
		GiftWrapPrice:  3_000,
		ShippingPrice:  15_000,
		TaxBps:         1000,
	})
	if b.TaxPrice != 18_500 {
		t.Fatalf("expected tax 18500, got %d", b.TaxPrice)
	}
	want := Money(200_000 - 10_000 - 5_000 + 2_000 + 3_000 + 15_000 + 18_500)
	if b.TotalPrice != want {
		t.Fatalf("expected total %d, got %d", want, b.TotalPrice)
	}
}

func TestComputeTaxRoundsHalfUp(t *testing.T) {
	// 9999 * 18.50% = 1849.815, half-up to 1850.
	b := Compute(Input{ItemsPrice: 9_999, TaxBps: 1850})
	if b.TaxPrice != 1_850 {
		t.Fatalf("expected tax 1850, got %d", b.TaxPrice)
	}
	// 100 * 0.25% = 0.25, rounds down.
	b = Compute(Input{ItemsPrice: 100, TaxBps: 25})
	if b.TaxPrice != 0 {
		t.Fatalf("expected tax 0, got %d", b.TaxPrice)
	}
	// 200 * 0.25% = 0.5, half-up to 1.
	b = Compute(Input{ItemsPrice: 200, TaxBps: 25})
	if b.TaxPrice != 1 {
		t.Fatalf("expected tax 1, got %d", b.TaxPrice)
	}
}

func TestComputeClampsDiscountsToItems(t *testing.T) {
	b := Compute(Input{ItemsPrice: 50_000, ComboDiscount: 70_000, CouponDiscount: 20_000})
	if b.ComboDiscount != 50_000 {
		t.Fatalf("expected combo clamped to 50000, got %d", b.ComboDiscount)
	}
	if b.CouponDiscount != 0 {
		t.Fatalf("expected coupon clamped to 0, got %d", b.CouponDiscount)
	}
	if b.TotalPrice != 0 {
		t.Fatalf("expected floor at 0, got %d", b.TotalPrice)
	}
}

func TestComputeTotalNeverNegative(t *testing.T) {
	cases := []Input{
		{},
		{ItemsPrice: -500},
		{ItemsPrice: 100, ComboDiscount: 100, CouponDiscount: 100},
		{ItemsPrice: 100, ComboDiscount: 40, CouponDiscount: 80, ShippingPrice: -50},
	}
	for i, in := range cases {
		if b := Compute(in); b.TotalPrice < 0 {
			t.Fatalf("case %d: total went negative: %d", i, b.TotalPrice)
		}
	}
}

func TestComputeNegativeSurchargesNormalized(t *testing.T) {
	b := Compute(Input{ItemsPrice: 10_000, PackingPrice: -1, GiftWrapPrice: -1, ShippingPrice: -1})
	if b.PackingPrice != 0 || b.GiftWrapPrice != 0 || b.ShippingPrice != 0 {
		t.Fatal("expected negative surcharges normalized to zero")
	}
}
