package tenant

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/common"
)

// AdminStore is the persistence surface behind the tenant admin API.
type AdminStore interface {
	GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error)
	UpdateTenantCommissionRate(ctx context.Context, id uuid.UUID, bps int32) error
}

// AdminHandler serves tenant reads and the commission rate edit. Rate edits
// only affect future settlements; ledger entries keep their snapshot.
type AdminHandler struct {
	Store AdminStore
	Log   zerolog.Logger
}

// Routes mounts the admin tenant endpoints.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Patch("/{id}/commission-rate", h.patchCommissionRate)
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tenant id", nil)
		return
	}
	t, err := h.Store.GetTenant(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

type commissionRatePayload struct {
	CommissionRateBps int32 `json:"commissionRateBps"`
}

func (h *AdminHandler) patchCommissionRate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tenant id", nil)
		return
	}
	var payload commissionRatePayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if payload.CommissionRateBps < 0 || payload.CommissionRateBps > 10000 {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "commissionRateBps must be within [0, 10000]", nil)
		return
	}
	if err := h.Store.UpdateTenantCommissionRate(r.Context(), id, payload.CommissionRateBps); err != nil {
		common.WriteError(w, err)
		return
	}
	h.Log.Info().
		Str("tenant_id", id.String()).
		Int32("commission_rate_bps", payload.CommissionRateBps).
		Msg("commission rate updated")
	t, err := h.Store.GetTenant(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}
