package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrCapExceeded indicates a usage ceiling was hit at reservation time.
	// The caller must recompute the price without the exhausted promotion.
	ErrCapExceeded = errors.New("promotion usage cap exceeded")
	// ErrNotReserved is returned by stores when a release finds no live
	// reservation. The governor treats it as a successful no-op.
	ErrNotReserved = errors.New("no live reservation")
)

// Kind discriminates which promotion family a reservation consumes.
type Kind string

const (
	KindCombo  Kind = "combo"
	KindCoupon Kind = "coupon"
)

// Reservation identifies one unit of promotion usage tied to an order.
type Reservation struct {
	Kind        Kind
	ConstructID uuid.UUID
	CouponCode  string
	CustomerID  uuid.UUID
	OrderID     uuid.UUID
}

// Store is the atomic counter surface the governor drives. Implementations
// must perform each reserve as a single conditional read-check-increment
// transaction; two racing reserves for the last remaining use must not both
// succeed.
type Store interface {
	ReserveCombo(ctx context.Context, constructID, customerID, orderID uuid.UUID) error
	ReleaseCombo(ctx context.Context, constructID, orderID uuid.UUID) error
	ReserveCoupon(ctx context.Context, code string, customerID, orderID uuid.UUID) error
	ReleaseCoupon(ctx context.Context, code string, orderID uuid.UUID) error
	SettlementExists(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// Governor enforces global and per-customer usage ceilings. All methods are
// safe for concurrent use; the atomicity lives in the Store.
type Governor struct {
	Store Store
}

// Reserve consumes one unit of the reservation's promotion. Returns
// ErrCapExceeded when either the global or the per-customer ceiling would be
// crossed.
func (g *Governor) Reserve(ctx context.Context, r Reservation) error {
	if g == nil || g.Store == nil {
		return errors.New("usage governor not configured")
	}
	switch r.Kind {
	case KindCombo:
		if r.ConstructID == uuid.Nil {
			return errors.New("construct id is required")
		}
		return g.Store.ReserveCombo(ctx, r.ConstructID, r.CustomerID, r.OrderID)
	case KindCoupon:
		if r.CouponCode == "" {
			return errors.New("coupon code is required")
		}
		return g.Store.ReserveCoupon(ctx, r.CouponCode, r.CustomerID, r.OrderID)
	default:
		return fmt.Errorf("unknown reservation kind %q", r.Kind)
	}
}

// Release returns a reservation's unit on cancellation. It is idempotent:
// releasing an absent or already-released reservation is a no-op. Once the
// order has been settled the counters are frozen and the release is skipped
// to keep historical usage auditable.
func (g *Governor) Release(ctx context.Context, r Reservation) error {
	if g == nil || g.Store == nil {
		return errors.New("usage governor not configured")
	}
	settled, err := g.Store.SettlementExists(ctx, r.OrderID)
	if err != nil {
		return fmt.Errorf("check settlement: %w", err)
	}
	if settled {
		return nil
	}
	switch r.Kind {
	case KindCombo:
		err = g.Store.ReleaseCombo(ctx, r.ConstructID, r.OrderID)
	case KindCoupon:
		err = g.Store.ReleaseCoupon(ctx, r.CouponCode, r.OrderID)
	default:
		return fmt.Errorf("unknown reservation kind %q", r.Kind)
	}
	if errors.Is(err, ErrNotReserved) {
		return nil
	}
	return err
}
