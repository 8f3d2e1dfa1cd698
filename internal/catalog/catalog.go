// Package catalog supplies immutable product snapshots for checkout and
// promotion evaluation. Prices and category memberships are read here once
// per evaluation; the promotion engine itself never talks to the database.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrProductUnavailable is returned when a requested product is missing or
// disabled.
var ErrProductUnavailable = errors.New("product unavailable")

// Snapshot is the read-only view of one product at evaluation time.
// UnitPrice already reflects the active discount price when one is set.
// VariantPrices overrides it per variant key; variants without an entry
// sell at the product price.
type Snapshot struct {
	ProductID     uuid.UUID
	TenantID      uuid.UUID
	Title         string
	UnitPrice     int64
	VariantPrices map[string]int64
	CategoryIDs   []uuid.UUID
	IsActive      bool
}

// PriceFor resolves the unit price for a variant, falling back to the
// product price when the variant carries no override.
func (s Snapshot) PriceFor(variantKey string) int64 {
	if variantKey != "" {
		if p, ok := s.VariantPrices[variantKey]; ok {
			return p
		}
	}
	return s.UnitPrice
}

// Provider loads product snapshots. The Postgres store implements it; a
// cache may wrap it.
type Provider interface {
	ProductSnapshots(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error)
}
