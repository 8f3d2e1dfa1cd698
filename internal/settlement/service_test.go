package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karyastore/backend-karya/internal/order"
)

type fakeStore struct {
	orders  map[uuid.UUID]order.Order
	items   map[uuid.UUID][]order.Item
	ledger  map[uuid.UUID][]LedgerEntry
	rates   map[uuid.UUID]int32
	inserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: map[uuid.UUID]order.Order{},
		items:  map[uuid.UUID][]order.Item{},
		ledger: map[uuid.UUID][]LedgerEntry{},
		rates:  map[uuid.UUID]int32{},
	}
}

func (f *fakeStore) GetOrder(_ context.Context, id uuid.UUID) (order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return order.Order{}, errors.New("order not found")
	}
	return o, nil
}

func (f *fakeStore) ListOrderItems(_ context.Context, orderID uuid.UUID) ([]order.Item, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) ListLedgerByOrder(_ context.Context, orderID uuid.UUID) ([]LedgerEntry, error) {
	return f.ledger[orderID], nil
}

func (f *fakeStore) InsertLedgerEntries(_ context.Context, entries []LedgerEntry) error {
	f.inserts++
	if len(entries) == 0 {
		return errors.New("empty insert")
	}
	orderID := entries[0].OrderID
	if len(f.ledger[orderID]) > 0 {
		return errors.New("duplicate ledger insert")
	}
	f.ledger[orderID] = entries
	return nil
}

func (f *fakeStore) TenantCommissionRateBps(_ context.Context, tenantID uuid.UUID) (int32, error) {
	rate, ok := f.rates[tenantID]
	if !ok {
		return 0, errors.New("tenant not found")
	}
	return rate, nil
}

func seedDeliveredOrder(f *fakeStore, rateBps int32, subtotals ...int64) uuid.UUID {
	orderID := uuid.New()
	tenantID := uuid.New()
	f.rates[tenantID] = rateBps
	f.orders[orderID] = order.Order{ID: orderID, Status: order.StatusDelivered}
	for _, sub := range subtotals {
		f.items[orderID] = append(f.items[orderID], order.Item{
			ID:        uuid.New(),
			OrderID:   orderID,
			TenantID:  tenantID,
			ProductID: uuid.New(),
			Qty:       1,
			UnitPrice: sub,
			Subtotal:  sub,
		})
	}
	return orderID
}

func TestSettleSplitsRevenuePerLine(t *testing.T) {
	f := newFakeStore()
	orderID := seedDeliveredOrder(f, 1000, 50_000, 30_000) // 10% commission
	svc := &Service{Store: f, Now: func() time.Time { return time.Unix(1700000000, 0).UTC() }}

	entries, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(5_000), entries[0].CommissionAmount)
	assert.Equal(t, int64(45_000), entries[0].NetAmount)
	assert.Equal(t, int64(3_000), entries[1].CommissionAmount)
	assert.Equal(t, int32(1000), entries[1].CommissionRateBps)
}

func TestSettleRoundsHalfUp(t *testing.T) {
	f := newFakeStore()
	// 333 × 15% = 49.95 rounds to 50; 250 × 15% = 37.5 rounds to 38.
	orderID := seedDeliveredOrder(f, 1500, 333, 250)
	svc := &Service{Store: f}

	entries, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), entries[0].CommissionAmount)
	assert.Equal(t, int64(38), entries[1].CommissionAmount)
}

func TestSettleIsIdempotent(t *testing.T) {
	f := newFakeStore()
	orderID := seedDeliveredOrder(f, 1000, 10_000)
	svc := &Service{Store: f}

	first, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)

	second, err := svc.Settle(context.Background(), orderID)
	require.ErrorIs(t, err, ErrAlreadySettled)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.inserts)
}

func TestSettleSnapshotsRate(t *testing.T) {
	f := newFakeStore()
	orderID := seedDeliveredOrder(f, 1000, 10_000)
	svc := &Service{Store: f}

	entries, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	require.Equal(t, int32(1000), entries[0].CommissionRateBps)

	// Change the live rate; the recorded split must not move.
	f.rates[entries[0].TenantID] = 2500
	replay, err := svc.Settle(context.Background(), orderID)
	require.ErrorIs(t, err, ErrAlreadySettled)
	assert.Equal(t, int32(1000), replay[0].CommissionRateBps)
	assert.Equal(t, int64(1_000), replay[0].CommissionAmount)
}

func TestSettleRejectsUnfulfilledOrder(t *testing.T) {
	f := newFakeStore()
	orderID := seedDeliveredOrder(f, 1000, 10_000)
	o := f.orders[orderID]
	o.Status = order.StatusShipped
	f.orders[orderID] = o
	svc := &Service{Store: f}

	_, err := svc.Settle(context.Background(), orderID)
	require.ErrorIs(t, err, ErrNotFulfilled)
	assert.Empty(t, f.ledger[orderID])
}
