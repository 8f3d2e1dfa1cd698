package promo

import "testing"

// Bundle scenario: set {A, B} at bundle price 1200 against A=700 + B=600
// yields a 100 discount so the pair contributes exactly the bundle price.
func TestBundlePriceDiscount(t *testing.T) {
	cart := []CartLine{
		{ProductID: prodA, Qty: 1, UnitPrice: 70_000},
		{ProductID: prodB, Qty: 1, UnitPrice: 60_000},
	}
	cand := Candidate{
		Construct: Construct{
			Kind:        KindFixedSet,
			Mode:        ModeBundlePrice,
			BundlePrice: 120_000,
			Items: []RequiredItem{
				{ProductID: prodA, Qty: 1},
				{ProductID: prodB, Qty: 1},
			},
		},
		Claim: Claim{Lines: []ClaimedLine{{Line: 0, Qty: 1}, {Line: 1, Qty: 1}}},
	}
	if got := Discount(cart, cand); got != 10_000 {
		t.Fatalf("expected discount 10000, got %d", got)
	}
}

func TestBundlePriceAboveClaimedSumIsZero(t *testing.T) {
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 50_000}}
	cand := Candidate{
		Construct: Construct{Kind: KindFixedSet, Mode: ModeBundlePrice, BundlePrice: 80_000},
		Claim:     Claim{Lines: []ClaimedLine{{Line: 0, Qty: 1}}},
	}
	if got := Discount(cart, cand); got != 0 {
		t.Fatalf("expected 0 discount, got %d", got)
	}
}

func TestFixedDiscountClampedToClaimedSum(t *testing.T) {
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 30_000}}
	cand := Candidate{
		Construct: Construct{Kind: KindAnyN, Mode: ModeFixedDiscount, DiscountValue: 50_000},
		Claim:     Claim{Lines: []ClaimedLine{{Line: 0, Qty: 1}}},
	}
	if got := Discount(cart, cand); got != 30_000 {
		t.Fatalf("expected clamp to 30000, got %d", got)
	}
}

// Category quota scenario: 20% capped at 300 over 2000 of wall frames gives
// min(400, 300) = 300.
func TestPercentWithCap(t *testing.T) {
	cart := []CartLine{
		{ProductID: prodA, Qty: 4, UnitPrice: 50_000},
	}
	cand := Candidate{
		Construct: Construct{Kind: KindCategoryQuota, Mode: ModePercentCap, PercentBps: 2000, Cap: 30_000, MinItems: 3},
		Claim:     Claim{Lines: []ClaimedLine{{Line: 0, Qty: 4}}},
	}
	if got := Discount(cart, cand); got != 30_000 {
		t.Fatalf("expected capped discount 30000, got %d", got)
	}
}

func TestPercentWithoutCap(t *testing.T) {
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 200_000}}
	cand := Candidate{
		Construct: Construct{Kind: KindAnyN, Mode: ModePercentCap, PercentBps: 2000},
		Claim:     Claim{Lines: []ClaimedLine{{Line: 0, Qty: 1}}},
	}
	if got := Discount(cart, cand); got != 40_000 {
		t.Fatalf("expected 40000, got %d", got)
	}
}

func TestPercentRoundsHalfUpOnce(t *testing.T) {
	// 333 * 15% = 49.95 -> rounds to 50 at the final step
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 333}}
	cand := Candidate{
		Construct: Construct{Kind: KindAnyN, Mode: ModePercentCap, PercentBps: 1500},
		Claim:     Claim{Lines: []ClaimedLine{{Line: 0, Qty: 1}}},
	}
	if got := Discount(cart, cand); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	// 250 * 15% = 37.5 -> 38 under half-up
	cart[0].UnitPrice = 250
	if got := Discount(cart, cand); got != 38 {
		t.Fatalf("expected 38, got %d", got)
	}
}
