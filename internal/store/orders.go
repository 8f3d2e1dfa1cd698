package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karyastore/backend-karya/internal/order"
)

// ErrConflict signals a lost compare-and-set, such as an order status update
// racing another transition.
var ErrConflict = errors.New("conflicting update")

const orderColumns = `id, customer_id, status, booking, currency,
	items_price, combo_discount, coupon_discount, packing_price,
	gift_wrap_price, shipping_price, tax_price, total_price,
	applied_construct_id, applied_coupon_code, notes, created_at, updated_at`

// CreateOrderWithItems persists an order and its lines atomically. The price
// breakdown is frozen as written; nothing recomputes it later.
func (s *Store) CreateOrderWithItems(ctx context.Context, o order.Order, items []order.Item) (order.Order, error) {
	if len(items) == 0 {
		return order.Order{}, errors.New("order requires at least one item")
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return order.Order{}, fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	b := o.Breakdown
	_, err = tx.Exec(ctx, `INSERT INTO orders (
			id, customer_id, status, booking, currency,
			items_price, combo_discount, coupon_discount, packing_price,
			gift_wrap_price, shipping_price, tax_price, total_price,
			applied_construct_id, applied_coupon_code, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		pgUUID(o.ID), pgUUID(o.CustomerID), string(o.Status), o.Booking, o.Currency,
		b.ItemsPrice, b.ComboDiscount, b.CouponDiscount, b.PackingPrice,
		b.GiftWrapPrice, b.ShippingPrice, b.TaxPrice, b.TotalPrice,
		nullableUUID(o.AppliedConstructID), nullableText(o.AppliedCouponCode), o.Notes)
	if err != nil {
		return order.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range items {
		it := &items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.OrderID = o.ID
		_, err = tx.Exec(ctx, `INSERT INTO order_items (
				id, order_id, tenant_id, product_id, variant_key, title, qty, unit_price, subtotal
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			pgUUID(it.ID), pgUUID(o.ID), pgUUID(it.TenantID), pgUUID(it.ProductID),
			it.VariantKey, it.Title, it.Qty, it.UnitPrice, it.Subtotal)
		if err != nil {
			return order.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("commit create order: %w", err)
	}
	return o, nil
}

// GetOrder loads one order by id.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (order.Order, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, pgUUID(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, ErrNotFound
	}
	return o, err
}

// ListOrdersByCustomer returns a customer's orders, newest first.
func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int32) ([]order.Order, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		pgUUID(customerID), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOrderItems returns the lines of an order.
func (s *Store) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]order.Item, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, order_id, tenant_id, product_id, variant_key,
			title, qty, unit_price, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY created_at`, pgUUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	var out []order.Item
	for rows.Next() {
		var (
			it                   order.Item
			id, oid, tenant, pid pgtype.UUID
		)
		if err := rows.Scan(&id, &oid, &tenant, &pid, &it.VariantKey,
			&it.Title, &it.Qty, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		it.ID = fromPG(id)
		it.OrderID = fromPG(oid)
		it.TenantID = fromPG(tenant)
		it.ProductID = fromPG(pid)
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateOrderStatus moves the order from one status to another with a
// compare-and-set on the current status. A lost race returns ErrConflict so
// the caller can reload and re-evaluate the transition.
func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to order.Status) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, pgUUID(id), string(from), string(to))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`,
			pgUUID(id)).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var (
		o             order.Order
		id, customer  pgtype.UUID
		status        string
		construct     pgtype.UUID
		couponCode    pgtype.Text
	)
	b := &o.Breakdown
	err := row.Scan(&id, &customer, &status, &o.Booking, &o.Currency,
		&b.ItemsPrice, &b.ComboDiscount, &b.CouponDiscount, &b.PackingPrice,
		&b.GiftWrapPrice, &b.ShippingPrice, &b.TaxPrice, &b.TotalPrice,
		&construct, &couponCode, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return order.Order{}, err
	}
	o.ID = fromPG(id)
	o.CustomerID = fromPG(customer)
	o.Status = order.Status(status)
	if construct.Valid {
		cid := fromPG(construct)
		o.AppliedConstructID = &cid
	}
	if couponCode.Valid {
		o.AppliedCouponCode = couponCode.String
	}
	return o, nil
}
