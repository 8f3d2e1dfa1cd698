// Package checkout drives the place-order workflow: snapshot the cart,
// evaluate promotions, reserve usage, and persist the frozen order. The
// promotion engine stays pure; every side effect lives here.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/catalog"
	"github.com/karyastore/backend-karya/internal/events"
	"github.com/karyastore/backend-karya/internal/order"
	"github.com/karyastore/backend-karya/internal/pricing"
	"github.com/karyastore/backend-karya/internal/promo"
	"github.com/karyastore/backend-karya/internal/usage"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no valid lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCouponExhausted is returned when the supplied coupon has no uses
	// left. Unlike a combo, the customer asked for it explicitly, so the
	// checkout fails loudly instead of silently dropping the code.
	ErrCouponExhausted = errors.New("coupon usage limit reached")
)

// LineInput is one requested cart entry.
type LineInput struct {
	ProductID  uuid.UUID
	VariantKey string
	Qty        int32
}

// Input is a checkout request.
type Input struct {
	CustomerID    uuid.UUID
	Lines         []LineInput
	CouponCode    string
	PackingPrice  int64
	GiftWrapPrice int64
	ShippingPrice int64
	TaxBps        int
	Booking       bool
	Currency      string
	Notes         string
}

// Quote is the evaluate-only response: the would-be breakdown plus which
// promotion won. Nothing is reserved or persisted.
type Quote struct {
	Breakdown          pricing.Breakdown
	AppliedConstructID *uuid.UUID
	AppliedCouponCode  string
}

// Store is the persistence surface checkout needs.
type Store interface {
	ListActiveConstructs(ctx context.Context, now time.Time) ([]promo.Construct, error)
	GetCoupon(ctx context.Context, code string) (promo.Coupon, error)
	CreateOrderWithItems(ctx context.Context, o order.Order, items []order.Item) (order.Order, error)
}

// Service wires the promotion engine into order placement.
type Service struct {
	Store    Store
	Catalog  catalog.Provider
	Governor *usage.Governor
	Engine   promo.Engine
	Bus      *events.Bus
	Log      zerolog.Logger
}

// Evaluate prices the cart without reserving anything. Carts use it to
// preview the discount before the customer commits.
func (s *Service) Evaluate(ctx context.Context, in Input) (Quote, error) {
	cart, _, err := s.snapshotCart(ctx, in.Lines)
	if err != nil {
		return Quote{}, err
	}
	res, err := s.evaluate(ctx, cart, in.CouponCode, nil)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(in, cart, res), nil
}

// PlaceOrder runs the full checkout: evaluate, reserve usage, persist. When
// the winning combo's cap is exhausted between evaluation and reservation,
// the cart is re-evaluated without it and the next candidate gets its turn.
func (s *Service) PlaceOrder(ctx context.Context, in Input) (order.Order, error) {
	cart, items, err := s.snapshotCart(ctx, in.Lines)
	if err != nil {
		return order.Order{}, err
	}
	orderID := uuid.New()

	var excluded []uuid.UUID
	for {
		res, err := s.evaluate(ctx, cart, in.CouponCode, excluded)
		if err != nil {
			return order.Order{}, err
		}
		o, err := s.reserveAndPersist(ctx, in, cart, items, orderID, res)
		if err == nil {
			return o, nil
		}
		var exhausted *comboExhaustedError
		if errors.As(err, &exhausted) {
			excluded = append(excluded, exhausted.constructID)
			continue
		}
		return order.Order{}, err
	}
}

// comboExhaustedError signals the winner's cap was consumed by racing
// checkouts; the caller retries evaluation without that construct.
type comboExhaustedError struct {
	constructID uuid.UUID
}

func (e *comboExhaustedError) Error() string {
	return fmt.Sprintf("construct %s exhausted at reservation", e.constructID)
}

func (s *Service) reserveAndPersist(ctx context.Context, in Input, cart []promo.CartLine, items []order.Item, orderID uuid.UUID, res promo.Result) (order.Order, error) {
	var reservations []usage.Reservation

	release := func() {
		for _, r := range reservations {
			if err := s.Governor.Release(ctx, r); err != nil {
				s.Log.Error().Err(err).Str("order_id", orderID.String()).Msg("reservation rollback failed")
			}
		}
	}

	if res.Winner != nil {
		r := usage.Reservation{
			Kind:        usage.KindCombo,
			ConstructID: res.Winner.Construct.ID,
			CustomerID:  in.CustomerID,
			OrderID:     orderID,
		}
		if err := s.Governor.Reserve(ctx, r); err != nil {
			if errors.Is(err, usage.ErrCapExceeded) {
				return order.Order{}, &comboExhaustedError{constructID: res.Winner.Construct.ID}
			}
			return order.Order{}, fmt.Errorf("reserve combo: %w", err)
		}
		reservations = append(reservations, r)
	}
	if res.CouponCode != "" {
		r := usage.Reservation{
			Kind:       usage.KindCoupon,
			CouponCode: res.CouponCode,
			CustomerID: in.CustomerID,
			OrderID:    orderID,
		}
		if err := s.Governor.Reserve(ctx, r); err != nil {
			release()
			if errors.Is(err, usage.ErrCapExceeded) {
				return order.Order{}, ErrCouponExhausted
			}
			return order.Order{}, fmt.Errorf("reserve coupon: %w", err)
		}
		reservations = append(reservations, r)
	}

	q := s.quote(in, cart, res)
	o := order.Order{
		ID:                 orderID,
		CustomerID:         in.CustomerID,
		Status:             order.StatusPending,
		Booking:            in.Booking,
		Currency:           in.Currency,
		Breakdown:          q.Breakdown,
		AppliedConstructID: q.AppliedConstructID,
		AppliedCouponCode:  q.AppliedCouponCode,
		Notes:              in.Notes,
	}
	created, err := s.Store.CreateOrderWithItems(ctx, o, items)
	if err != nil {
		release()
		return order.Order{}, fmt.Errorf("persist order: %w", err)
	}

	if s.Bus != nil {
		if _, err := s.Bus.Emit(ctx, events.TopicOrderCreated, created.ID, map[string]any{
			"orderId":    created.ID,
			"customerId": created.CustomerID,
			"totalPrice": created.Breakdown.TotalPrice,
		}); err != nil {
			s.Log.Warn().Err(err).Str("order_id", created.ID.String()).Msg("order created event emit failed")
		}
	}
	return created, nil
}

func (s *Service) evaluate(ctx context.Context, cart []promo.CartLine, couponCode string, excluded []uuid.UUID) (promo.Result, error) {
	constructs, err := s.Store.ListActiveConstructs(ctx, s.nowFromEngine())
	if err != nil {
		return promo.Result{}, fmt.Errorf("load constructs: %w", err)
	}
	if len(excluded) > 0 {
		skip := map[uuid.UUID]bool{}
		for _, id := range excluded {
			skip[id] = true
		}
		kept := constructs[:0]
		for _, c := range constructs {
			if !skip[c.ID] {
				kept = append(kept, c)
			}
		}
		constructs = kept
	}

	var coupon *promo.Coupon
	if couponCode != "" {
		c, err := s.Store.GetCoupon(ctx, couponCode)
		if err != nil {
			return promo.Result{}, err
		}
		coupon = &c
	}
	return s.Engine.Evaluate(cart, constructs, coupon)
}

func (s *Service) quote(in Input, cart []promo.CartLine, res promo.Result) Quote {
	breakdown := pricing.Compute(pricing.Input{
		ItemsPrice:     promo.ItemsTotal(cart),
		ComboDiscount:  res.ComboDiscount,
		CouponDiscount: res.CouponDiscount,
		PackingPrice:   in.PackingPrice,
		GiftWrapPrice:  in.GiftWrapPrice,
		ShippingPrice:  in.ShippingPrice,
		TaxBps:         in.TaxBps,
	})
	q := Quote{Breakdown: breakdown, AppliedCouponCode: res.CouponCode}
	if res.Winner != nil {
		id := res.Winner.Construct.ID
		q.AppliedConstructID = &id
	}
	return q
}

// snapshotCart resolves the requested lines against the catalog, producing
// both the engine's cart view and the order lines to persist.
func (s *Service) snapshotCart(ctx context.Context, lines []LineInput) ([]promo.CartLine, []order.Item, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if l.Qty > 0 && l.ProductID != uuid.Nil {
			ids = append(ids, l.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil, nil, ErrEmptyCart
	}
	snapshots, err := s.Catalog.ProductSnapshots(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot cart: %w", err)
	}

	var (
		cart  []promo.CartLine
		items []order.Item
	)
	for _, l := range lines {
		if l.Qty <= 0 || l.ProductID == uuid.Nil {
			continue
		}
		snap, ok := snapshots[l.ProductID]
		if !ok || !snap.IsActive {
			return nil, nil, fmt.Errorf("%w: %s", catalog.ErrProductUnavailable, l.ProductID)
		}
		unit := snap.PriceFor(l.VariantKey)
		cart = append(cart, promo.CartLine{
			ProductID:   snap.ProductID,
			VariantKey:  l.VariantKey,
			Qty:         l.Qty,
			UnitPrice:   unit,
			CategoryIDs: snap.CategoryIDs,
		})
		items = append(items, order.Item{
			TenantID:   snap.TenantID,
			ProductID:  snap.ProductID,
			VariantKey: l.VariantKey,
			Title:      snap.Title,
			Qty:        l.Qty,
			UnitPrice:  unit,
			Subtotal:   int64(l.Qty) * unit,
		})
	}
	if len(cart) == 0 {
		return nil, nil, ErrEmptyCart
	}
	return cart, items, nil
}

func (s *Service) nowFromEngine() time.Time {
	if s.Engine.Now != nil {
		return s.Engine.Now()
	}
	return time.Now()
}
