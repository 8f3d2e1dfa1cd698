package order

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/common"
	"github.com/karyastore/backend-karya/internal/events"
	"github.com/karyastore/backend-karya/internal/usage"
)

// Store is the persistence surface behind the order read endpoints.
type Store interface {
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int32) ([]Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]Item, error)
}

// Handler serves the customer-facing order endpoints, including the
// self-service cancel.
type Handler struct {
	Store    AdminStore
	Governor *usage.Governor
	Bus      *events.Bus
	Log      zerolog.Logger
}

// Routes mounts the customer order endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customerID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	p := common.ParsePagination(r, 20, 100)
	orders, err := h.Store.ListOrdersByCustomer(r.Context(), customerID, p.PerPage, p.Offset())
	if err != nil {
		h.Log.Error().Err(err).Msg("list orders")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders, "pagination": p})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownOrder(w, r)
	if !ok {
		return
	}
	items, err := h.Store.ListOrderItems(r.Context(), o.ID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"order": o, "items": items}})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownOrder(w, r)
	if !ok {
		return
	}
	if !CanTransition(o.Status, StatusCancelled, o.Booking) {
		common.WriteError(w, ErrInvalidTransition)
		return
	}
	if err := h.Store.UpdateOrderStatus(r.Context(), o.ID, o.Status, StatusCancelled); err != nil {
		common.WriteError(w, err)
		return
	}
	releaseReservations(r.Context(), h.Governor, h.Log, o)
	if h.Bus != nil {
		if _, err := h.Bus.Emit(r.Context(), events.TopicOrderCancelled, o.ID, nil); err != nil {
			h.Log.Warn().Err(err).Msg("event emit failed")
		}
	}
	o.Status = StatusCancelled
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// ownOrder loads the order and enforces ownership. Someone else's order id
// gets a 404 so ids do not leak.
func (h *Handler) ownOrder(w http.ResponseWriter, r *http.Request) (Order, bool) {
	customerID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return Order{}, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return Order{}, false
	}
	o, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return Order{}, false
	}
	if o.CustomerID != customerID {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return Order{}, false
	}
	return o, true
}
