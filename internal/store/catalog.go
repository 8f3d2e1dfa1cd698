package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karyastore/backend-karya/internal/catalog"
)

// ProductSnapshots loads the current price, owner, and category memberships
// for the given product ids. Disabled products are returned with IsActive
// false so callers can reject them explicitly.
func (s *Store) ProductSnapshots(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Snapshot, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]catalog.Snapshot{}, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT p.id, p.tenant_id, p.title,
			COALESCE(NULLIF(p.discount_price, 0), p.price),
			p.is_active,
			COALESCE(array_agg(pc.category_id) FILTER (WHERE pc.category_id IS NOT NULL), '{}')
		FROM products p
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		WHERE p.id = ANY($1)
		GROUP BY p.id`, toPGSlice(ids))
	if err != nil {
		return nil, fmt.Errorf("product snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]catalog.Snapshot, len(ids))
	for rows.Next() {
		var (
			snap       catalog.Snapshot
			id, tenant pgtype.UUID
			categories []pgtype.UUID
		)
		if err := rows.Scan(&id, &tenant, &snap.Title, &snap.UnitPrice, &snap.IsActive, &categories); err != nil {
			return nil, err
		}
		snap.ProductID = fromPG(id)
		snap.TenantID = fromPG(tenant)
		snap.CategoryIDs = fromPGSlice(categories)
		out[snap.ProductID] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachVariantPrices(ctx, ids, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachVariantPrices fills the per-variant overrides onto the snapshots.
func (s *Store) attachVariantPrices(ctx context.Context, ids []uuid.UUID, out map[uuid.UUID]catalog.Snapshot) error {
	rows, err := s.Pool.Query(ctx, `SELECT product_id, variant_key,
			COALESCE(NULLIF(discount_price, 0), price)
		FROM product_variants
		WHERE product_id = ANY($1)`, toPGSlice(ids))
	if err != nil {
		return fmt.Errorf("variant prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID pgtype.UUID
			key       string
			price     int64
		)
		if err := rows.Scan(&productID, &key, &price); err != nil {
			return err
		}
		snap, ok := out[fromPG(productID)]
		if !ok {
			continue
		}
		if snap.VariantPrices == nil {
			snap.VariantPrices = map[string]int64{}
		}
		snap.VariantPrices[key] = price
		out[snap.ProductID] = snap
	}
	return rows.Err()
}
