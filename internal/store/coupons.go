package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karyastore/backend-karya/internal/promo"
)

const couponColumns = `code, mode, value, percent_bps, cap, starts_at, ends_at,
	is_active, usage_limit_global, used_count, usage_limit_per_customer`

// GetCoupon loads a coupon by its code. Codes are stored uppercase; lookup is
// case-insensitive.
func (s *Store) GetCoupon(ctx context.Context, code string) (promo.Coupon, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`,
		strings.ToUpper(strings.TrimSpace(code)))
	c, err := scanCoupon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return promo.Coupon{}, promo.ErrCouponNotFound
	}
	return c, err
}

// ListCoupons returns all coupons for the admin surface.
func (s *Store) ListCoupons(ctx context.Context, limit, offset int32) ([]promo.Coupon, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()
	var out []promo.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCoupon persists a validated coupon.
func (s *Store) CreateCoupon(ctx context.Context, c promo.Coupon) (promo.Coupon, error) {
	if err := c.Validate(); err != nil {
		return promo.Coupon{}, err
	}
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	_, err := s.Pool.Exec(ctx, `INSERT INTO coupons (
			code, mode, value, percent_bps, cap, starts_at, ends_at, is_active,
			usage_limit_global, used_count, usage_limit_per_customer
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,$10)`,
		c.Code, string(c.Mode), c.Value, c.PercentBps, c.Cap,
		c.StartsAt, endsAtParam(c.EndsAt), c.IsActive,
		c.UsageLimitGlobal, c.UsageLimitPerCustomer)
	if err != nil {
		return promo.Coupon{}, fmt.Errorf("insert coupon: %w", err)
	}
	return c, nil
}

// UpdateCoupon rewrites the coupon's rule fields, keeping the usage counter.
func (s *Store) UpdateCoupon(ctx context.Context, c promo.Coupon) error {
	if err := c.Validate(); err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE coupons SET
			mode=$2, value=$3, percent_bps=$4, cap=$5, starts_at=$6, ends_at=$7,
			is_active=$8, usage_limit_global=$9, usage_limit_per_customer=$10,
			updated_at=now()
		WHERE code=$1`,
		strings.ToUpper(strings.TrimSpace(c.Code)), string(c.Mode), c.Value,
		c.PercentBps, c.Cap, c.StartsAt, endsAtParam(c.EndsAt), c.IsActive,
		c.UsageLimitGlobal, c.UsageLimitPerCustomer)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrCouponNotFound
	}
	return nil
}

func scanCoupon(row pgx.Row) (promo.Coupon, error) {
	var (
		c      promo.Coupon
		mode   string
		endsAt pgtype.Timestamptz
	)
	err := row.Scan(&c.Code, &mode, &c.Value, &c.PercentBps, &c.Cap,
		&c.StartsAt, &endsAt, &c.IsActive, &c.UsageLimitGlobal, &c.UsedCount,
		&c.UsageLimitPerCustomer)
	if err != nil {
		return promo.Coupon{}, err
	}
	c.Mode = promo.Mode(mode)
	if endsAt.Valid {
		c.EndsAt = endsAt.Time
	}
	return c, nil
}
