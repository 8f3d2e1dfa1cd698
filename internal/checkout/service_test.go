package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karyastore/backend-karya/internal/catalog"
	"github.com/karyastore/backend-karya/internal/order"
	"github.com/karyastore/backend-karya/internal/promo"
	"github.com/karyastore/backend-karya/internal/usage"
)

var testClock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

type fakeStore struct {
	constructs []promo.Construct
	coupons    map[string]promo.Coupon
	created    []order.Order
	items      [][]order.Item
}

func (f *fakeStore) ListActiveConstructs(_ context.Context, now time.Time) ([]promo.Construct, error) {
	var out []promo.Construct
	for _, c := range f.constructs {
		if c.ActiveAt(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) GetCoupon(_ context.Context, code string) (promo.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return promo.Coupon{}, promo.ErrCouponNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateOrderWithItems(_ context.Context, o order.Order, items []order.Item) (order.Order, error) {
	f.created = append(f.created, o)
	f.items = append(f.items, items)
	return o, nil
}

type fakeCatalog struct {
	snapshots map[uuid.UUID]catalog.Snapshot
}

func (f *fakeCatalog) ProductSnapshots(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Snapshot, error) {
	out := map[uuid.UUID]catalog.Snapshot{}
	for _, id := range ids {
		if s, ok := f.snapshots[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// fakeUsage caps combos by construct id and coupons by code.
type fakeUsage struct {
	comboLeft  map[uuid.UUID]int
	couponLeft map[string]int
	released   int
}

func (f *fakeUsage) ReserveCombo(_ context.Context, constructID, _, _ uuid.UUID) error {
	if left, ok := f.comboLeft[constructID]; ok {
		if left <= 0 {
			return usage.ErrCapExceeded
		}
		f.comboLeft[constructID] = left - 1
	}
	return nil
}

func (f *fakeUsage) ReleaseCombo(context.Context, uuid.UUID, uuid.UUID) error {
	f.released++
	return nil
}

func (f *fakeUsage) ReserveCoupon(_ context.Context, code string, _, _ uuid.UUID) error {
	if left, ok := f.couponLeft[code]; ok {
		if left <= 0 {
			return usage.ErrCapExceeded
		}
		f.couponLeft[code] = left - 1
	}
	return nil
}

func (f *fakeUsage) ReleaseCoupon(context.Context, string, uuid.UUID) error {
	f.released++
	return nil
}

func (f *fakeUsage) SettlementExists(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func fixedDiscountConstruct(name string, priority int32, discount int64, minQty int32) promo.Construct {
	return promo.Construct{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		Name:          name,
		Kind:          promo.KindAnyN,
		Mode:          promo.ModeFixedDiscount,
		DiscountValue: discount,
		MinProducts:   minQty,
		Priority:      priority,
		StartsAt:      testClock().Add(-time.Hour),
		IsActive:      true,
	}
}

func newService(store *fakeStore, cat *fakeCatalog, u *fakeUsage) *Service {
	return &Service{
		Store:    store,
		Catalog:  cat,
		Governor: &usage.Governor{Store: u},
		Engine:   promo.Engine{Now: testClock},
	}
}

func seedProduct(cat *fakeCatalog, price int64) uuid.UUID {
	id := uuid.New()
	cat.snapshots[id] = catalog.Snapshot{
		ProductID: id,
		TenantID:  uuid.New(),
		Title:     "ceramic mug",
		UnitPrice: price,
		IsActive:  true,
	}
	return id
}

func TestPlaceOrderAppliesWinningCombo(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	productID := seedProduct(cat, 40_000)
	construct := fixedDiscountConstruct("buy two", 10, 15_000, 2)
	store := &fakeStore{constructs: []promo.Construct{construct}}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{}, couponLeft: map[string]int{}}
	svc := newService(store, cat, u)

	o, err := svc.PlaceOrder(context.Background(), Input{
		CustomerID: uuid.New(),
		Lines:      []LineInput{{ProductID: productID, Qty: 2}},
		Currency:   "INR",
	})
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	assert.Equal(t, int64(80_000), o.Breakdown.ItemsPrice)
	assert.Equal(t, int64(15_000), o.Breakdown.ComboDiscount)
	assert.Equal(t, int64(65_000), o.Breakdown.TotalPrice)
	require.NotNil(t, o.AppliedConstructID)
	assert.Equal(t, construct.ID, *o.AppliedConstructID)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestPlaceOrderFallsBackWhenWinnerExhausted(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	productID := seedProduct(cat, 40_000)
	big := fixedDiscountConstruct("big", 10, 20_000, 2)
	small := fixedDiscountConstruct("small", 5, 5_000, 2)
	store := &fakeStore{constructs: []promo.Construct{big, small}}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{big.ID: 0}, couponLeft: map[string]int{}}
	svc := newService(store, cat, u)

	o, err := svc.PlaceOrder(context.Background(), Input{
		CustomerID: uuid.New(),
		Lines:      []LineInput{{ProductID: productID, Qty: 2}},
	})
	require.NoError(t, err)
	require.NotNil(t, o.AppliedConstructID)
	assert.Equal(t, small.ID, *o.AppliedConstructID)
	assert.Equal(t, int64(5_000), o.Breakdown.ComboDiscount)
}

func TestPlaceOrderWithoutPromotionWhenAllExhausted(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	productID := seedProduct(cat, 40_000)
	only := fixedDiscountConstruct("only", 10, 20_000, 2)
	store := &fakeStore{constructs: []promo.Construct{only}}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{only.ID: 0}, couponLeft: map[string]int{}}
	svc := newService(store, cat, u)

	o, err := svc.PlaceOrder(context.Background(), Input{
		CustomerID: uuid.New(),
		Lines:      []LineInput{{ProductID: productID, Qty: 2}},
	})
	require.NoError(t, err)
	assert.Nil(t, o.AppliedConstructID)
	assert.Equal(t, int64(0), o.Breakdown.ComboDiscount)
	assert.Equal(t, int64(80_000), o.Breakdown.TotalPrice)
}

func TestPlaceOrderCouponExhaustedReleasesCombo(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	productID := seedProduct(cat, 40_000)
	combo := fixedDiscountConstruct("stackable", 10, 10_000, 2)
	combo.AllowCouponStacking = true
	store := &fakeStore{
		constructs: []promo.Construct{combo},
		coupons: map[string]promo.Coupon{
			"WELCOME": {
				Code:     "WELCOME",
				Mode:     promo.ModeFixedDiscount,
				Value:    5_000,
				StartsAt: testClock().Add(-time.Hour),
				IsActive: true,
			},
		},
	}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{}, couponLeft: map[string]int{"WELCOME": 0}}
	svc := newService(store, cat, u)

	_, err := svc.PlaceOrder(context.Background(), Input{
		CustomerID: uuid.New(),
		Lines:      []LineInput{{ProductID: productID, Qty: 2}},
		CouponCode: "WELCOME",
	})
	require.ErrorIs(t, err, ErrCouponExhausted)
	assert.Equal(t, 1, u.released)
	assert.Empty(t, store.created)
}

func TestPlaceOrderStackingDenied(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	productID := seedProduct(cat, 40_000)
	combo := fixedDiscountConstruct("exclusive", 10, 10_000, 2)
	store := &fakeStore{
		constructs: []promo.Construct{combo},
		coupons: map[string]promo.Coupon{
			"EXTRA": {
				Code:     "EXTRA",
				Mode:     promo.ModeFixedDiscount,
				Value:    2_000,
				StartsAt: testClock().Add(-time.Hour),
				IsActive: true,
			},
		},
	}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{}, couponLeft: map[string]int{}}
	svc := newService(store, cat, u)

	_, err := svc.PlaceOrder(context.Background(), Input{
		CustomerID: uuid.New(),
		Lines:      []LineInput{{ProductID: productID, Qty: 2}},
		CouponCode: "EXTRA",
	})
	require.ErrorIs(t, err, promo.ErrStackingDenied)
	assert.Empty(t, store.created)
}

func TestEvaluateDoesNotReserveOrPersist(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	productID := seedProduct(cat, 40_000)
	combo := fixedDiscountConstruct("preview", 10, 10_000, 2)
	store := &fakeStore{constructs: []promo.Construct{combo}}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{combo.ID: 1}, couponLeft: map[string]int{}}
	svc := newService(store, cat, u)

	q, err := svc.Evaluate(context.Background(), Input{
		Lines: []LineInput{{ProductID: productID, Qty: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), q.Breakdown.ComboDiscount)
	assert.Empty(t, store.created)
	assert.Equal(t, 1, u.comboLeft[combo.ID])
}

func TestPlaceOrderPricesVariantsThroughTable(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	productID := uuid.New()
	cat.snapshots[productID] = catalog.Snapshot{
		ProductID: productID,
		TenantID:  uuid.New(),
		Title:     "ceramic vase",
		UnitPrice: 40_000,
		VariantPrices: map[string]int64{
			"large": 55_000,
		},
		IsActive: true,
	}
	store := &fakeStore{}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{}, couponLeft: map[string]int{}}
	svc := newService(store, cat, u)

	o, err := svc.PlaceOrder(context.Background(), Input{
		CustomerID: uuid.New(),
		Lines: []LineInput{
			{ProductID: productID, VariantKey: "large", Qty: 1},
			{ProductID: productID, VariantKey: "small", Qty: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(95_000), o.Breakdown.ItemsPrice)
	require.Len(t, store.items, 1)
	assert.Equal(t, int64(55_000), store.items[0][0].UnitPrice)
	assert.Equal(t, int64(40_000), store.items[0][1].UnitPrice)
}

func TestPlaceOrderRejectsUnavailableProduct(t *testing.T) {
	cat := &fakeCatalog{snapshots: map[uuid.UUID]catalog.Snapshot{}}
	store := &fakeStore{}
	u := &fakeUsage{comboLeft: map[uuid.UUID]int{}, couponLeft: map[string]int{}}
	svc := newService(store, cat, u)

	_, err := svc.PlaceOrder(context.Background(), Input{
		CustomerID: uuid.New(),
		Lines:      []LineInput{{ProductID: uuid.New(), Qty: 1}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrProductUnavailable))
}
