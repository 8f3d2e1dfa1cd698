package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/karyastore/backend-karya/internal/events"
	"github.com/karyastore/backend-karya/internal/order"
)

var (
	// ErrAlreadySettled is returned when the order already has ledger
	// entries. It carries success semantics: callers receive the original
	// entries alongside it and must not retry.
	ErrAlreadySettled = errors.New("order already settled")
	// ErrNotFulfilled is returned when settlement is requested for an order
	// that has not reached a terminal fulfilled state.
	ErrNotFulfilled = errors.New("order not in a fulfilled state")
)

// Store is the persistence surface the settler needs.
type Store interface {
	GetOrder(ctx context.Context, id uuid.UUID) (order.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]order.Item, error)
	ListLedgerByOrder(ctx context.Context, orderID uuid.UUID) ([]LedgerEntry, error)
	InsertLedgerEntries(ctx context.Context, entries []LedgerEntry) error
	TenantCommissionRateBps(ctx context.Context, tenantID uuid.UUID) (int32, error)
}

// Locker serialises settlement per order. The Redis lock implementation
// satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service writes the commission ledger for fulfilled orders. Settle is
// idempotent: at-least-once task delivery and concurrent triggers produce
// exactly one set of entries per order.
type Service struct {
	Store  Store
	Locker Locker
	Bus    *events.Bus
	Log    zerolog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Settle computes and persists the commission split for one order. The
// tenant rate is read once per tenant and snapshotted into each entry;
// subsequent rate edits never touch the written rows. Returns the existing
// entries with ErrAlreadySettled when the order settled before.
func (s *Service) Settle(ctx context.Context, orderID uuid.UUID) ([]LedgerEntry, error) {
	if s.Locker == nil {
		return s.settle(ctx, orderID)
	}
	var (
		entries []LedgerEntry
		err     error
	)
	lockErr := s.Locker.WithLock(ctx, "settle:order:"+orderID.String(), 30*time.Second, func(ctx context.Context) error {
		entries, err = s.settle(ctx, orderID)
		return nil
	})
	if lockErr != nil {
		return nil, fmt.Errorf("settlement lock: %w", lockErr)
	}
	return entries, err
}

func (s *Service) settle(ctx context.Context, orderID uuid.UUID) ([]LedgerEntry, error) {
	existing, err := s.Store.ListLedgerByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, ErrAlreadySettled
	}

	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Fulfilled(o.Status) {
		return nil, fmt.Errorf("%w: order %s is %s", ErrNotFulfilled, orderID, o.Status)
	}
	items, err := s.Store.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	settledAt := s.now()
	rates := map[uuid.UUID]int32{}
	entries := make([]LedgerEntry, 0, len(items))
	for _, it := range items {
		rate, ok := rates[it.TenantID]
		if !ok {
			rate, err = s.Store.TenantCommissionRateBps(ctx, it.TenantID)
			if err != nil {
				return nil, fmt.Errorf("tenant rate for %s: %w", it.TenantID, err)
			}
			rates[it.TenantID] = rate
		}
		commission := commissionOf(it.Subtotal, rate)
		entries = append(entries, LedgerEntry{
			ID:                uuid.New(),
			OrderID:           orderID,
			OrderItemID:       it.ID,
			TenantID:          it.TenantID,
			ProductID:         it.ProductID,
			LineRevenue:       it.Subtotal,
			CommissionRateBps: rate,
			CommissionAmount:  commission,
			NetAmount:         it.Subtotal - commission,
			SettledAt:         settledAt,
		})
	}

	if err := s.Store.InsertLedgerEntries(ctx, entries); err != nil {
		// A concurrent settle may have won between the read and the write.
		replay, replayErr := s.Store.ListLedgerByOrder(ctx, orderID)
		if replayErr == nil && len(replay) > 0 {
			return replay, ErrAlreadySettled
		}
		return nil, err
	}

	if s.Bus != nil {
		if _, err := s.Bus.Emit(ctx, events.TopicSettlementRecorded, orderID, map[string]any{
			"orderId": orderID,
			"entries": len(entries),
		}); err != nil {
			s.Log.Warn().Err(err).Str("order_id", orderID.String()).Msg("settlement event emit failed")
		}
	}
	return entries, nil
}

// commissionOf computes the platform cut with round-half-up at the final
// step. Intermediate math stays exact.
func commissionOf(lineRevenue int64, rateBps int32) int64 {
	if lineRevenue <= 0 || rateBps <= 0 {
		return 0
	}
	return decimal.NewFromInt(lineRevenue).
		Mul(decimal.NewFromInt32(rateBps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}
