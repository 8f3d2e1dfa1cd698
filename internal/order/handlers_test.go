package order

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/common"
	"github.com/karyastore/backend-karya/internal/usage"
)

func newCustomerRig(o Order) (*fakeAdminStore, *fakeUsageStore, http.Handler) {
	store := &fakeAdminStore{orders: map[uuid.UUID]Order{o.ID: o}}
	us := &fakeUsageStore{}
	h := &Handler{
		Store:    store,
		Governor: &usage.Governor{Store: us},
		Log:      zerolog.Nop(),
	}
	r := chi.NewRouter()
	h.Routes(r)
	return store, us, r
}

func cancelRequest(orderID, customerID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/"+orderID.String()+"/cancel", nil)
	return req.WithContext(common.WithUserID(req.Context(), customerID))
}

func TestCancelReleasesReservations(t *testing.T) {
	constructID := uuid.New()
	o := Order{
		ID:                 uuid.New(),
		CustomerID:         uuid.New(),
		Status:             StatusPending,
		AppliedConstructID: &constructID,
		AppliedCouponCode:  "WELCOME10",
	}
	store, us, router := newCustomerRig(o)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, cancelRequest(o.ID, o.CustomerID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if store.orders[o.ID].Status != StatusCancelled {
		t.Fatalf("status not persisted, got %s", store.orders[o.ID].Status)
	}
	if us.comboReleases != 1 || us.couponReleases != 1 {
		t.Fatalf("expected one combo and one coupon release, got %d/%d", us.comboReleases, us.couponReleases)
	}
}

func TestCancelHidesForeignOrders(t *testing.T) {
	o := Order{ID: uuid.New(), CustomerID: uuid.New(), Status: StatusPending}
	store, _, router := newCustomerRig(o)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, cancelRequest(o.ID, uuid.New()))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another customer's order, got %d", rr.Code)
	}
	if store.updates != 0 {
		t.Fatalf("foreign cancel must not touch the store")
	}
}

func TestCancelRejectsTerminalOrders(t *testing.T) {
	o := Order{ID: uuid.New(), CustomerID: uuid.New(), Status: StatusDelivered}
	store, us, router := newCustomerRig(o)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, cancelRequest(o.ID, o.CustomerID))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if store.updates != 0 || us.comboReleases != 0 {
		t.Fatalf("terminal cancel must have no side effects")
	}
}
