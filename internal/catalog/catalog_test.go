package catalog

import "testing"

func TestPriceForFallsBackToProductPrice(t *testing.T) {
	snap := Snapshot{
		UnitPrice:     40_000,
		VariantPrices: map[string]int64{"large": 55_000},
	}
	if got := snap.PriceFor("large"); got != 55_000 {
		t.Fatalf("expected variant price 55000, got %d", got)
	}
	if got := snap.PriceFor("small"); got != 40_000 {
		t.Fatalf("expected fallback 40000, got %d", got)
	}
	if got := snap.PriceFor(""); got != 40_000 {
		t.Fatalf("expected product price for empty key, got %d", got)
	}
}

func TestPriceForWithoutTable(t *testing.T) {
	snap := Snapshot{UnitPrice: 12_500}
	if got := snap.PriceFor("anything"); got != 12_500 {
		t.Fatalf("expected product price, got %d", got)
	}
}
