package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/karyastore/backend-karya/internal/usage"
)

// ReserveCombo consumes one global (and per-customer) use of a construct in a
// single transaction. The construct row is locked first so two racing
// reserves for the last remaining use serialise; exactly one wins.
func (s *Store) ReserveCombo(ctx context.Context, constructID, customerID, orderID uuid.UUID) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	var limitGlobal, usedCount, limitPerCustomer int32
	err = tx.QueryRow(ctx, `SELECT usage_limit_global, used_count, usage_limit_per_customer
		FROM combo_constructs WHERE id = $1 FOR UPDATE`, pgUUID(constructID)).
		Scan(&limitGlobal, &usedCount, &limitPerCustomer)
	if err != nil {
		return fmt.Errorf("lock construct: %w", err)
	}
	if limitGlobal > 0 && usedCount >= limitGlobal {
		return usage.ErrCapExceeded
	}
	if limitPerCustomer > 0 {
		var byCustomer int32
		err = tx.QueryRow(ctx, `SELECT count(*) FROM promo_usages
			WHERE construct_id = $1 AND customer_id = $2 AND state = 'reserved'`,
			pgUUID(constructID), pgUUID(customerID)).Scan(&byCustomer)
		if err != nil {
			return fmt.Errorf("count customer usage: %w", err)
		}
		if byCustomer >= limitPerCustomer {
			return usage.ErrCapExceeded
		}
	}

	tag, err := tx.Exec(ctx, `INSERT INTO promo_usages (id, kind, construct_id, customer_id, order_id, state)
		VALUES ($1, 'combo', $2, $3, $4, 'reserved')
		ON CONFLICT (construct_id, order_id) WHERE kind = 'combo' DO NOTHING`,
		pgUUID(uuid.New()), pgUUID(constructID), pgUUID(customerID), pgUUID(orderID))
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already reserved for this order; do not double count.
		return tx.Commit(ctx)
	}
	_, err = tx.Exec(ctx, `UPDATE combo_constructs SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1`, pgUUID(constructID))
	if err != nil {
		return fmt.Errorf("increment used count: %w", err)
	}
	return tx.Commit(ctx)
}

// ReleaseCombo returns one use of a construct when its order is cancelled.
// Flipping the usage row to released is the guard: a second release finds no
// reserved row and reports ErrNotReserved instead of decrementing twice.
func (s *Store) ReleaseCombo(ctx context.Context, constructID, orderID uuid.UUID) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE promo_usages SET state = 'released', released_at = now()
		WHERE kind = 'combo' AND construct_id = $1 AND order_id = $2 AND state = 'reserved'`,
		pgUUID(constructID), pgUUID(orderID))
	if err != nil {
		return fmt.Errorf("release usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return usage.ErrNotReserved
	}
	_, err = tx.Exec(ctx, `UPDATE combo_constructs
		SET used_count = GREATEST(used_count - 1, 0), updated_at = now()
		WHERE id = $1`, pgUUID(constructID))
	if err != nil {
		return fmt.Errorf("decrement used count: %w", err)
	}
	return tx.Commit(ctx)
}

// ReserveCoupon mirrors ReserveCombo for code-based coupons.
func (s *Store) ReserveCoupon(ctx context.Context, code string, customerID, orderID uuid.UUID) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	var limitGlobal, usedCount, limitPerCustomer int32
	err = tx.QueryRow(ctx, `SELECT usage_limit_global, used_count, usage_limit_per_customer
		FROM coupons WHERE code = $1 FOR UPDATE`, code).
		Scan(&limitGlobal, &usedCount, &limitPerCustomer)
	if err != nil {
		return fmt.Errorf("lock coupon: %w", err)
	}
	if limitGlobal > 0 && usedCount >= limitGlobal {
		return usage.ErrCapExceeded
	}
	if limitPerCustomer > 0 {
		var byCustomer int32
		err = tx.QueryRow(ctx, `SELECT count(*) FROM promo_usages
			WHERE coupon_code = $1 AND customer_id = $2 AND state = 'reserved'`,
			code, pgUUID(customerID)).Scan(&byCustomer)
		if err != nil {
			return fmt.Errorf("count customer usage: %w", err)
		}
		if byCustomer >= limitPerCustomer {
			return usage.ErrCapExceeded
		}
	}

	tag, err := tx.Exec(ctx, `INSERT INTO promo_usages (id, kind, coupon_code, customer_id, order_id, state)
		VALUES ($1, 'coupon', $2, $3, $4, 'reserved')
		ON CONFLICT (coupon_code, order_id) WHERE kind = 'coupon' DO NOTHING`,
		pgUUID(uuid.New()), code, pgUUID(customerID), pgUUID(orderID))
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}
	_, err = tx.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1, updated_at = now()
		WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("increment used count: %w", err)
	}
	return tx.Commit(ctx)
}

// ReleaseCoupon mirrors ReleaseCombo for code-based coupons.
func (s *Store) ReleaseCoupon(ctx context.Context, code string, orderID uuid.UUID) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE promo_usages SET state = 'released', released_at = now()
		WHERE kind = 'coupon' AND coupon_code = $1 AND order_id = $2 AND state = 'reserved'`,
		code, pgUUID(orderID))
	if err != nil {
		return fmt.Errorf("release usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return usage.ErrNotReserved
	}
	_, err = tx.Exec(ctx, `UPDATE coupons
		SET used_count = GREATEST(used_count - 1, 0), updated_at = now()
		WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("decrement used count: %w", err)
	}
	return tx.Commit(ctx)
}

// SettlementExists reports whether the order already has ledger entries.
// Once true, promotion counters tied to the order are frozen.
func (s *Store) SettlementExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM commission_ledger WHERE order_id = $1)`,
		pgUUID(orderID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check settlement: %w", err)
	}
	return exists, nil
}
