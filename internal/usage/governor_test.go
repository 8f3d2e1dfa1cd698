package usage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// memStore mimics the storage layer's conditional increments with a mutex,
// matching the serialisation the SQL implementation gets from row locks.
type memStore struct {
	mu          sync.Mutex
	globalLimit int32
	perCustomer int32
	used        int32
	byCustomer  map[uuid.UUID]int32
	reserved    map[uuid.UUID]bool
	settled     map[uuid.UUID]bool
}

func newMemStore(globalLimit, perCustomer int32) *memStore {
	return &memStore{
		globalLimit: globalLimit,
		perCustomer: perCustomer,
		byCustomer:  map[uuid.UUID]int32{},
		reserved:    map[uuid.UUID]bool{},
		settled:     map[uuid.UUID]bool{},
	}
}

func (m *memStore) ReserveCombo(_ context.Context, _, customerID, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.globalLimit > 0 && m.used >= m.globalLimit {
		return ErrCapExceeded
	}
	if m.perCustomer > 0 && m.byCustomer[customerID] >= m.perCustomer {
		return ErrCapExceeded
	}
	m.used++
	m.byCustomer[customerID]++
	m.reserved[orderID] = true
	return nil
}

func (m *memStore) ReleaseCombo(_ context.Context, _, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.reserved[orderID] {
		return ErrNotReserved
	}
	m.reserved[orderID] = false
	m.used--
	return nil
}

func (m *memStore) ReserveCoupon(ctx context.Context, _ string, customerID, orderID uuid.UUID) error {
	return m.ReserveCombo(ctx, uuid.Nil, customerID, orderID)
}

func (m *memStore) ReleaseCoupon(ctx context.Context, _ string, orderID uuid.UUID) error {
	return m.ReleaseCombo(ctx, uuid.Nil, orderID)
}

func (m *memStore) SettlementExists(_ context.Context, orderID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled[orderID], nil
}

func TestReserveConcurrentNeverOversells(t *testing.T) {
	const limit = 5
	store := newMemStore(limit, 0)
	g := &Governor{Store: store}
	construct := uuid.New()

	var wg sync.WaitGroup
	results := make(chan error, limit+1)
	for i := 0; i < limit+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- g.Reserve(context.Background(), Reservation{
				Kind:        KindCombo,
				ConstructID: construct,
				CustomerID:  uuid.New(),
				OrderID:     uuid.New(),
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, capped int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrCapExceeded):
			capped++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != limit || capped != 1 {
		t.Fatalf("expected %d successes and 1 cap rejection, got %d/%d", limit, ok, capped)
	}
}

func TestReservePerCustomerCeiling(t *testing.T) {
	store := newMemStore(0, 1)
	g := &Governor{Store: store}
	construct := uuid.New()
	customer := uuid.New()

	first := g.Reserve(context.Background(), Reservation{Kind: KindCombo, ConstructID: construct, CustomerID: customer, OrderID: uuid.New()})
	if first != nil {
		t.Fatalf("unexpected error: %v", first)
	}
	second := g.Reserve(context.Background(), Reservation{Kind: KindCombo, ConstructID: construct, CustomerID: customer, OrderID: uuid.New()})
	if !errors.Is(second, ErrCapExceeded) {
		t.Fatalf("expected ErrCapExceeded, got %v", second)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := newMemStore(10, 0)
	g := &Governor{Store: store}
	construct := uuid.New()
	orderID := uuid.New()

	r := Reservation{Kind: KindCombo, ConstructID: construct, CustomerID: uuid.New(), OrderID: orderID}
	if err := g.Reserve(context.Background(), r); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := g.Release(context.Background(), r); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if store.used != 0 {
		t.Fatalf("expected counter back at 0, got %d", store.used)
	}
}

func TestReleaseFrozenAfterSettlement(t *testing.T) {
	store := newMemStore(10, 0)
	g := &Governor{Store: store}
	construct := uuid.New()
	orderID := uuid.New()

	r := Reservation{Kind: KindCombo, ConstructID: construct, CustomerID: uuid.New(), OrderID: orderID}
	if err := g.Reserve(context.Background(), r); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	store.mu.Lock()
	store.settled[orderID] = true
	store.mu.Unlock()

	if err := g.Release(context.Background(), r); err != nil {
		t.Fatalf("release after settlement must be a silent no-op: %v", err)
	}
	if store.used != 1 {
		t.Fatal("counters must stay frozen once settlement exists")
	}
}
