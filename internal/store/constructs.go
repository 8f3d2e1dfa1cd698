package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karyastore/backend-karya/internal/promo"
)

const constructColumns = `id, tenant_id, name, kind, mode, discount_value, bundle_price,
	percent_bps, cap, items, category_ids, min_items, min_products, priority,
	allow_coupon_stacking, starts_at, ends_at, is_active,
	usage_limit_global, used_count, usage_limit_per_customer`

type requiredItemRow struct {
	ProductID  string `json:"productId"`
	VariantKey string `json:"variantKey,omitempty"`
	Qty        int32  `json:"qty"`
}

// ListActiveConstructs returns every enabled construct whose validity window
// contains the given instant. Counter values reflect the snapshot at read
// time; enforcement happens at reservation.
func (s *Store) ListActiveConstructs(ctx context.Context, now time.Time) ([]promo.Construct, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+constructColumns+`
		FROM combo_constructs
		WHERE is_active AND starts_at <= $1 AND (ends_at IS NULL OR ends_at > $1)
		ORDER BY priority DESC, starts_at`, now)
	if err != nil {
		return nil, fmt.Errorf("list active constructs: %w", err)
	}
	defer rows.Close()
	var out []promo.Construct
	for rows.Next() {
		c, err := scanConstruct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListConstructs returns all constructs for the admin surface, newest
// first.
func (s *Store) ListConstructs(ctx context.Context, limit, offset int32) ([]promo.Construct, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+constructColumns+` FROM combo_constructs
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list constructs: %w", err)
	}
	defer rows.Close()
	var out []promo.Construct
	for rows.Next() {
		c, err := scanConstruct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConstruct loads one construct by id.
func (s *Store) GetConstruct(ctx context.Context, id uuid.UUID) (promo.Construct, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+constructColumns+` FROM combo_constructs WHERE id = $1`, pgUUID(id))
	c, err := scanConstruct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return promo.Construct{}, ErrNotFound
	}
	return c, err
}

// CreateConstruct persists a validated construct. Validation happens here,
// at write time; evaluation never sees a misconfigured record.
func (s *Store) CreateConstruct(ctx context.Context, c promo.Construct) (promo.Construct, error) {
	if err := c.Validate(); err != nil {
		return promo.Construct{}, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	items, err := encodeItems(c.Items)
	if err != nil {
		return promo.Construct{}, err
	}
	_, err = s.Pool.Exec(ctx, `INSERT INTO combo_constructs (
			id, tenant_id, name, kind, mode, discount_value, bundle_price,
			percent_bps, cap, items, category_ids, min_items, min_products,
			priority, allow_coupon_stacking, starts_at, ends_at, is_active,
			usage_limit_global, used_count, usage_limit_per_customer
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,0,$20)`,
		pgUUID(c.ID), pgUUID(c.TenantID), c.Name, string(c.Kind), string(c.Mode),
		c.DiscountValue, c.BundlePrice, c.PercentBps, c.Cap, items,
		toPGSlice(c.CategoryIDs), c.MinItems, c.MinProducts, c.Priority,
		c.AllowCouponStacking, c.StartsAt, endsAtParam(c.EndsAt), c.IsActive,
		c.UsageLimitGlobal, c.UsageLimitPerCustomer)
	if err != nil {
		return promo.Construct{}, fmt.Errorf("insert construct: %w", err)
	}
	return c, nil
}

// UpdateConstruct rewrites a construct's definition. Usage counters are
// preserved; only the rule fields change.
func (s *Store) UpdateConstruct(ctx context.Context, c promo.Construct) error {
	if err := c.Validate(); err != nil {
		return err
	}
	items, err := encodeItems(c.Items)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE combo_constructs SET
			name=$2, kind=$3, mode=$4, discount_value=$5, bundle_price=$6,
			percent_bps=$7, cap=$8, items=$9, category_ids=$10, min_items=$11,
			min_products=$12, priority=$13, allow_coupon_stacking=$14,
			starts_at=$15, ends_at=$16, is_active=$17,
			usage_limit_global=$18, usage_limit_per_customer=$19, updated_at=now()
		WHERE id=$1`,
		pgUUID(c.ID), c.Name, string(c.Kind), string(c.Mode), c.DiscountValue,
		c.BundlePrice, c.PercentBps, c.Cap, items, toPGSlice(c.CategoryIDs),
		c.MinItems, c.MinProducts, c.Priority, c.AllowCouponStacking,
		c.StartsAt, endsAtParam(c.EndsAt), c.IsActive,
		c.UsageLimitGlobal, c.UsageLimitPerCustomer)
	if err != nil {
		return fmt.Errorf("update construct: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeItems(items []promo.RequiredItem) ([]byte, error) {
	rows := make([]requiredItemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, requiredItemRow{ProductID: it.ProductID.String(), VariantKey: it.VariantKey, Qty: it.Qty})
	}
	return json.Marshal(rows)
}

func decodeItems(raw []byte) ([]promo.RequiredItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []requiredItemRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode construct items: %w", err)
	}
	out := make([]promo.RequiredItem, 0, len(rows))
	for _, r := range rows {
		pid, err := uuid.Parse(r.ProductID)
		if err != nil {
			return nil, fmt.Errorf("decode construct items: %w", err)
		}
		out = append(out, promo.RequiredItem{ProductID: pid, VariantKey: r.VariantKey, Qty: r.Qty})
	}
	return out, nil
}

func endsAtParam(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func scanConstruct(row pgx.Row) (promo.Construct, error) {
	var (
		c          promo.Construct
		id, tenant pgtype.UUID
		kind, mode string
		items      []byte
		categories []pgtype.UUID
		endsAt     pgtype.Timestamptz
	)
	err := row.Scan(&id, &tenant, &c.Name, &kind, &mode, &c.DiscountValue,
		&c.BundlePrice, &c.PercentBps, &c.Cap, &items, &categories,
		&c.MinItems, &c.MinProducts, &c.Priority, &c.AllowCouponStacking,
		&c.StartsAt, &endsAt, &c.IsActive, &c.UsageLimitGlobal, &c.UsedCount,
		&c.UsageLimitPerCustomer)
	if err != nil {
		return promo.Construct{}, err
	}
	c.ID = fromPG(id)
	c.TenantID = fromPG(tenant)
	c.Kind = promo.Kind(kind)
	c.Mode = promo.Mode(mode)
	c.CategoryIDs = fromPGSlice(categories)
	if endsAt.Valid {
		c.EndsAt = endsAt.Time
	}
	c.Items, err = decodeItems(items)
	if err != nil {
		return promo.Construct{}, err
	}
	return c, nil
}
