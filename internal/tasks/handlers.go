package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/obs"
	"github.com/karyastore/backend-karya/internal/settlement"
)

// SettleHandler consumes settlement tasks. asynq delivers at least once;
// the settler's idempotency turns redeliveries into replays.
type SettleHandler struct {
	Settler *settlement.Service
	Log     zerolog.Logger
}

// ProcessTask implements asynq.Handler for TypeSettleOrder.
func (h *SettleHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseSettleOrderPayload(t)
	if err != nil {
		// Malformed payloads never become valid; skip retries.
		return errors.Join(err, asynq.SkipRetry)
	}
	start := time.Now()
	entries, err := h.Settler.Settle(ctx, payload.OrderID)
	if obs.SettlementLatency != nil {
		obs.SettlementLatency.Observe(obs.DurationMillis(time.Since(start)))
	}
	switch {
	case errors.Is(err, settlement.ErrAlreadySettled):
		if obs.SettlementTotal != nil {
			obs.SettlementTotal.WithLabelValues("replay").Inc()
		}
		h.Log.Info().Str("order_id", payload.OrderID.String()).Msg("settlement replay, entries already written")
		return nil
	case errors.Is(err, settlement.ErrNotFulfilled):
		// Transition may still be in flight; let asynq retry.
		if obs.SettlementTotal != nil {
			obs.SettlementTotal.WithLabelValues("error").Inc()
		}
		return err
	case err != nil:
		if obs.SettlementTotal != nil {
			obs.SettlementTotal.WithLabelValues("error").Inc()
		}
		h.Log.Error().Err(err).Str("order_id", payload.OrderID.String()).Msg("settlement failed")
		return err
	}
	if obs.SettlementTotal != nil {
		obs.SettlementTotal.WithLabelValues("ok").Inc()
	}
	h.Log.Info().
		Str("order_id", payload.OrderID.String()).
		Int("entries", len(entries)).
		Msg("order settled")
	return nil
}

// NewMux registers all worker handlers.
func NewMux(settler *settlement.Service, log zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeSettleOrder, &SettleHandler{Settler: settler, Log: log})
	return mux
}
