package promo

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func uuidMust(value string) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		panic(err)
	}
	return id
}

var (
	prodA  = uuidMust("11111111-1111-1111-1111-111111111111")
	prodB  = uuidMust("22222222-2222-2222-2222-222222222222")
	prodC  = uuidMust("33333333-3333-3333-3333-333333333333")
	catImg = uuidMust("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	catPot = uuidMust("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
)

func TestFixedSetMatch(t *testing.T) {
	cart := []CartLine{
		{ProductID: prodA, Qty: 2, UnitPrice: 70_000},
		{ProductID: prodB, Qty: 1, UnitPrice: 60_000},
		{ProductID: prodC, Qty: 5, UnitPrice: 10_000},
	}
	c := Construct{
		Kind: KindFixedSet,
		Items: []RequiredItem{
			{ProductID: prodA, Qty: 1},
			{ProductID: prodB, Qty: 1},
		},
	}
	claim, ok := Match(cart, c)
	if !ok {
		t.Fatal("expected match")
	}
	if len(claim.Lines) != 2 {
		t.Fatalf("expected 2 claimed lines, got %d", len(claim.Lines))
	}
	// only required quantities are claimed, extra lines stay unclaimed
	if got := claim.Sum(cart); got != 130_000 {
		t.Fatalf("expected claimed sum 130000, got %d", got)
	}
}

func TestFixedSetInsufficientQty(t *testing.T) {
	cart := []CartLine{{ProductID: prodA, Qty: 1, UnitPrice: 70_000}}
	c := Construct{
		Kind:  KindFixedSet,
		Items: []RequiredItem{{ProductID: prodA, Qty: 2}},
	}
	if _, ok := Match(cart, c); ok {
		t.Fatal("expected no match when required qty is not met")
	}
}

func TestFixedSetVariantMismatch(t *testing.T) {
	cart := []CartLine{{ProductID: prodA, VariantKey: "large", Qty: 1, UnitPrice: 70_000}}
	c := Construct{
		Kind:  KindFixedSet,
		Items: []RequiredItem{{ProductID: prodA, VariantKey: "small", Qty: 1}},
	}
	if _, ok := Match(cart, c); ok {
		t.Fatal("expected no match for different variant")
	}
}

func TestCategoryQuotaCountsQuantities(t *testing.T) {
	cart := []CartLine{
		{ProductID: prodA, Qty: 2, UnitPrice: 50_000, CategoryIDs: []uuid.UUID{catImg}},
		{ProductID: prodB, Qty: 1, UnitPrice: 50_000, CategoryIDs: []uuid.UUID{catPot}},
		{ProductID: prodC, Qty: 1, UnitPrice: 50_000, CategoryIDs: []uuid.UUID{catImg}},
	}
	c := Construct{Kind: KindCategoryQuota, CategoryIDs: []uuid.UUID{catImg}, MinItems: 3}
	claim, ok := Match(cart, c)
	if !ok {
		t.Fatal("expected match: 3 items in category")
	}
	if got := claim.Sum(cart); got != 150_000 {
		t.Fatalf("expected claimed sum 150000, got %d", got)
	}

	c.MinItems = 4
	if _, ok := Match(cart, c); ok {
		t.Fatal("expected no match below quota")
	}
}

func TestAnyNQuota(t *testing.T) {
	cart := []CartLine{
		{ProductID: prodA, Qty: 2, UnitPrice: 10_000},
		{ProductID: prodB, Qty: 1, UnitPrice: 20_000},
	}
	c := Construct{Kind: KindAnyN, MinProducts: 3}
	claim, ok := Match(cart, c)
	if !ok {
		t.Fatal("expected match for 3 total items")
	}
	if got := claim.Sum(cart); got != 40_000 {
		t.Fatalf("expected whole cart claimed, got %d", got)
	}
	c.MinProducts = 4
	if _, ok := Match(cart, c); ok {
		t.Fatal("expected no match for minProducts=4")
	}
}

func TestMatchAllSkipsInactiveWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cart := []CartLine{{ProductID: prodA, Qty: 5, UnitPrice: 10_000}}
	constructs := []Construct{
		{ID: uuid.New(), Kind: KindAnyN, MinProducts: 1, IsActive: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)},
		{ID: uuid.New(), Kind: KindAnyN, MinProducts: 1, IsActive: true, StartsAt: now.Add(time.Hour)},
		{ID: uuid.New(), Kind: KindAnyN, MinProducts: 1, IsActive: false, StartsAt: now.Add(-time.Hour)},
		// window end is exclusive
		{ID: uuid.New(), Kind: KindAnyN, MinProducts: 1, IsActive: true, StartsAt: now.Add(-2 * time.Hour), EndsAt: now},
	}
	got := MatchAll(cart, constructs, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Construct.ID != constructs[0].ID {
		t.Fatal("unexpected candidate selected")
	}
}
