package promo

import (
	"errors"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func activeAnyN(id string, priority int32, value Money, stacking bool) Construct {
	return Construct{
		ID:                  uuidMust(id),
		Kind:                KindAnyN,
		Mode:                ModeFixedDiscount,
		DiscountValue:       value,
		MinProducts:         1,
		Priority:            priority,
		AllowCouponStacking: stacking,
		IsActive:            true,
		StartsAt:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateNoMatchIsNotAnError(t *testing.T) {
	e := Engine{Now: fixedClock()}
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 10_000}}
	res, err := e.Evaluate(cart, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Winner != nil || res.ComboDiscount != 0 {
		t.Fatal("expected empty result for no candidates")
	}
}

func TestEvaluateStackingDenied(t *testing.T) {
	e := Engine{Now: fixedClock()}
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 100_000}}
	constructs := []Construct{activeAnyN("11111111-1111-1111-1111-111111111111", 1, 20_000, false)}
	coupon := &Coupon{Code: "SAVE50", Mode: ModeFixedDiscount, Value: 5_000, IsActive: true}

	_, err := e.Evaluate(cart, constructs, coupon)
	if !errors.Is(err, ErrStackingDenied) {
		t.Fatalf("expected ErrStackingDenied, got %v", err)
	}
}

func TestEvaluateCouponStacksWhenAllowed(t *testing.T) {
	e := Engine{Now: fixedClock()}
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 100_000}}
	constructs := []Construct{activeAnyN("11111111-1111-1111-1111-111111111111", 1, 20_000, true)}
	coupon := &Coupon{Code: "SAVE50", Mode: ModeFixedDiscount, Value: 5_000, IsActive: true}

	res, err := e.Evaluate(cart, constructs, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ComboDiscount != 20_000 || res.CouponDiscount != 5_000 {
		t.Fatalf("unexpected discounts: combo=%d coupon=%d", res.ComboDiscount, res.CouponDiscount)
	}
	if res.CouponCode != "SAVE50" {
		t.Fatalf("unexpected coupon code %q", res.CouponCode)
	}
}

func TestEvaluateCouponAloneWithoutCombo(t *testing.T) {
	e := Engine{Now: fixedClock()}
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 100_000}}
	coupon := &Coupon{Code: "PCT10", Mode: ModePercentCap, PercentBps: 1000, IsActive: true}

	res, err := e.Evaluate(cart, nil, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CouponDiscount != 10_000 {
		t.Fatalf("expected coupon discount 10000, got %d", res.CouponDiscount)
	}
}

func TestEvaluateExpiredCoupon(t *testing.T) {
	e := Engine{Now: fixedClock()}
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 100_000}}
	coupon := &Coupon{
		Code:     "OLD",
		Mode:     ModeFixedDiscount,
		Value:    5_000,
		IsActive: true,
		EndsAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := e.Evaluate(cart, nil, coupon)
	if !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected ErrCouponExpired, got %v", err)
	}
}

func TestCouponBaseFlooredAtZero(t *testing.T) {
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 30_000}}
	if got := CouponBase(cart, 10_000); got != 20_000 {
		t.Fatalf("expected base 20000, got %d", got)
	}
	if got := CouponBase(cart, 30_000); got != 0 {
		t.Fatalf("expected zero base when combo consumes the items total, got %d", got)
	}
	if got := CouponBase(cart, 40_000); got != 0 {
		t.Fatalf("expected zero base, not negative, got %d", got)
	}
}

func TestEvaluateCouponZeroWhenComboConsumesTotal(t *testing.T) {
	e := Engine{Now: fixedClock()}
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 50_000}}
	constructs := []Construct{activeAnyN("11111111-1111-1111-1111-111111111111", 1, 50_000, true)}
	coupon := &Coupon{Code: "PCT10", Mode: ModePercentCap, PercentBps: 1000, IsActive: true}

	res, err := e.Evaluate(cart, constructs, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ComboDiscount != 50_000 {
		t.Fatalf("expected combo 50000, got %d", res.ComboDiscount)
	}
	if res.CouponDiscount != 0 {
		t.Fatalf("expected zero coupon discount on an empty base, got %d", res.CouponDiscount)
	}
}

func TestEvaluateCouponAppliesAfterComboDiscount(t *testing.T) {
	e := Engine{Now: fixedClock()}
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 100_000}}
	constructs := []Construct{activeAnyN("11111111-1111-1111-1111-111111111111", 1, 90_000, true)}
	// coupon larger than the remaining base gets clamped
	coupon := &Coupon{Code: "BIG", Mode: ModeFixedDiscount, Value: 50_000, IsActive: true}

	res, err := e.Evaluate(cart, constructs, coupon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ComboDiscount+res.CouponDiscount > ItemsTotal(cart) {
		t.Fatal("discounts must never exceed the items total")
	}
	if res.CouponDiscount != 10_000 {
		t.Fatalf("expected coupon clamped to 10000, got %d", res.CouponDiscount)
	}
}
