package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karyastore/backend-karya/internal/settlement"
)

// InsertLedgerEntries appends the commission rows for one settled order in a
// single transaction. The unique index on order_item_id makes a replay fail
// loudly instead of double booking.
func (s *Store) InsertLedgerEntries(ctx context.Context, entries []settlement.LedgerEntry) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range entries {
		e := &entries[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		_, err = tx.Exec(ctx, `INSERT INTO commission_ledger (
				id, order_id, order_item_id, tenant_id, product_id,
				line_revenue, commission_rate_bps, commission_amount, net_amount, settled_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			pgUUID(e.ID), pgUUID(e.OrderID), pgUUID(e.OrderItemID), pgUUID(e.TenantID),
			pgUUID(e.ProductID), e.LineRevenue, e.CommissionRateBps,
			e.CommissionAmount, e.NetAmount, e.SettledAt)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ListLedgerByOrder returns the existing entries for an order, empty when the
// order has not settled yet.
func (s *Store) ListLedgerByOrder(ctx context.Context, orderID uuid.UUID) ([]settlement.LedgerEntry, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, order_id, order_item_id, tenant_id, product_id,
			line_revenue, commission_rate_bps, commission_amount, net_amount, settled_at
		FROM commission_ledger WHERE order_id = $1 ORDER BY settled_at, id`, pgUUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()
	var out []settlement.LedgerEntry
	for rows.Next() {
		var (
			e                         settlement.LedgerEntry
			id, oid, item, tenant, pid pgtype.UUID
		)
		if err := rows.Scan(&id, &oid, &item, &tenant, &pid,
			&e.LineRevenue, &e.CommissionRateBps, &e.CommissionAmount,
			&e.NetAmount, &e.SettledAt); err != nil {
			return nil, err
		}
		e.ID = fromPG(id)
		e.OrderID = fromPG(oid)
		e.OrderItemID = fromPG(item)
		e.TenantID = fromPG(tenant)
		e.ProductID = fromPG(pid)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TenantLedgerSummary aggregates a tenant's settled figures.
func (s *Store) TenantLedgerSummary(ctx context.Context, tenantID uuid.UUID) (settlement.TenantSummary, error) {
	sum := settlement.TenantSummary{TenantID: tenantID}
	err := s.Pool.QueryRow(ctx, `SELECT
			count(DISTINCT order_id),
			COALESCE(sum(line_revenue), 0),
			COALESCE(sum(commission_amount), 0),
			COALESCE(sum(net_amount), 0)
		FROM commission_ledger WHERE tenant_id = $1`, pgUUID(tenantID)).
		Scan(&sum.OrderCount, &sum.GrossRevenue, &sum.CommissionAmount, &sum.NetRevenue)
	if err != nil {
		return settlement.TenantSummary{}, fmt.Errorf("tenant summary: %w", err)
	}
	return sum, nil
}

// PlatformOverview aggregates settled figures across all tenants.
func (s *Store) PlatformOverview(ctx context.Context) (settlement.Overview, error) {
	var o settlement.Overview
	err := s.Pool.QueryRow(ctx, `SELECT
			count(DISTINCT order_id),
			COALESCE(sum(line_revenue), 0),
			COALESCE(sum(commission_amount), 0),
			COALESCE(sum(net_amount), 0)
		FROM commission_ledger`).
		Scan(&o.SettledOrders, &o.GrossRevenue, &o.CommissionAmount, &o.NetPayouts)
	if err != nil {
		return settlement.Overview{}, fmt.Errorf("platform overview: %w", err)
	}
	return o, nil
}

// TopProductsByCommission ranks products by accumulated commission.
func (s *Store) TopProductsByCommission(ctx context.Context, limit int32) ([]settlement.ProductCommission, error) {
	rows, err := s.Pool.Query(ctx, `SELECT product_id, tenant_id,
			count(DISTINCT order_id),
			COALESCE(sum(line_revenue), 0),
			COALESCE(sum(commission_amount), 0)
		FROM commission_ledger
		GROUP BY product_id, tenant_id
		ORDER BY COALESCE(sum(commission_amount), 0) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()
	var out []settlement.ProductCommission
	for rows.Next() {
		var (
			p           settlement.ProductCommission
			pid, tenant pgtype.UUID
		)
		if err := rows.Scan(&pid, &tenant, &p.Orders, &p.LineRevenue, &p.CommissionAmount); err != nil {
			return nil, err
		}
		p.ProductID = fromPG(pid)
		p.TenantID = fromPG(tenant)
		out = append(out, p)
	}
	return out, rows.Err()
}
