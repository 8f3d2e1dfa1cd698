package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/common"
	"github.com/karyastore/backend-karya/internal/events"
	"github.com/karyastore/backend-karya/internal/obs"
	"github.com/karyastore/backend-karya/internal/usage"
)

// ErrInvalidTransition is returned when a requested status move is not legal
// on the order's path.
var ErrInvalidTransition = errors.New("invalid status transition")

func init() {
	common.RegisterError(ErrInvalidTransition, "INVALID_TRANSITION", http.StatusUnprocessableEntity)
}

// AdminStore extends the read surface with the compare-and-set status write.
type AdminStore interface {
	Store
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

// SettleEnqueuer hands fulfilled orders to the settlement queue.
type SettleEnqueuer interface {
	EnqueueSettle(ctx context.Context, orderID uuid.UUID) error
}

// AdminHandler serves the operator order endpoints, chiefly the status
// transition that drives settlement and reservation release.
type AdminHandler struct {
	Store    AdminStore
	Governor *usage.Governor
	Enqueuer SettleEnqueuer
	Bus      *events.Bus
	Log      zerolog.Logger
}

// Routes mounts the admin order endpoints.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Patch("/{id}/status", h.patchStatus)
}

type statusPayload struct {
	Status Status `json:"status"`
}

func (h *AdminHandler) patchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var payload statusPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	to := payload.Status
	if !Valid(to) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status", nil)
		return
	}

	o, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !CanTransition(o.Status, to, o.Booking) {
		h.observeTransition(to, "rejected")
		common.WriteError(w, ErrInvalidTransition)
		return
	}
	if err := h.Store.UpdateOrderStatus(r.Context(), id, o.Status, to); err != nil {
		h.observeTransition(to, "conflict")
		common.WriteError(w, err)
		return
	}
	h.observeTransition(to, "ok")
	h.afterTransition(r.Context(), o, to)

	o.Status = to
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// afterTransition runs the side effects of a committed transition. Failures
// are logged, not rolled back: settlement is retried by the queue and
// releases are idempotent.
func (h *AdminHandler) afterTransition(ctx context.Context, o Order, to Status) {
	switch {
	case Fulfilled(to):
		if h.Enqueuer != nil {
			if err := h.Enqueuer.EnqueueSettle(ctx, o.ID); err != nil {
				h.Log.Error().Err(err).Str("order_id", o.ID.String()).Msg("enqueue settlement failed")
			}
		}
		topic := events.TopicOrderDelivered
		if to == StatusCompleted {
			topic = events.TopicOrderCompleted
		}
		h.emit(ctx, topic, o.ID)
	case to == StatusCancelled:
		h.releaseReservations(ctx, o)
		h.emit(ctx, events.TopicOrderCancelled, o.ID)
	}
}

func (h *AdminHandler) releaseReservations(ctx context.Context, o Order) {
	releaseReservations(ctx, h.Governor, h.Log, o)
}

// releaseReservations hands back any promotion usage the order consumed.
// Shared by the admin transition endpoint and customer-initiated cancels.
func releaseReservations(ctx context.Context, g *usage.Governor, log zerolog.Logger, o Order) {
	if g == nil {
		return
	}
	if o.AppliedConstructID != nil {
		err := g.Release(ctx, usage.Reservation{
			Kind:        usage.KindCombo,
			ConstructID: *o.AppliedConstructID,
			CustomerID:  o.CustomerID,
			OrderID:     o.ID,
		})
		observeRelease(log, "combo", err)
	}
	if o.AppliedCouponCode != "" {
		err := g.Release(ctx, usage.Reservation{
			Kind:       usage.KindCoupon,
			CouponCode: o.AppliedCouponCode,
			CustomerID: o.CustomerID,
			OrderID:    o.ID,
		})
		observeRelease(log, "coupon", err)
	}
}

func observeRelease(log zerolog.Logger, kind string, err error) {
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("reservation release failed")
		if obs.ReleaseTotal != nil {
			obs.ReleaseTotal.WithLabelValues(kind, "error").Inc()
		}
		return
	}
	if obs.ReleaseTotal != nil {
		obs.ReleaseTotal.WithLabelValues(kind, "ok").Inc()
	}
}

func (h *AdminHandler) observeTransition(to Status, result string) {
	if obs.OrderTransitionTotal != nil {
		obs.OrderTransitionTotal.WithLabelValues(string(to), result).Inc()
	}
}

func (h *AdminHandler) emit(ctx context.Context, topic string, id uuid.UUID) {
	if h.Bus == nil {
		return
	}
	if _, err := h.Bus.Emit(ctx, topic, id, nil); err != nil {
		h.Log.Warn().Err(err).Str("topic", topic).Msg("event emit failed")
	}
}
