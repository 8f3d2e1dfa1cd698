package settlement

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/common"
)

func init() {
	common.RegisterError(ErrNotFulfilled, "NOT_FULFILLED", http.StatusUnprocessableEntity)
}

// AdminHandler serves the settlement aggregates and per-order ledger.
type AdminHandler struct {
	Reporter *Reporter
	Store    Store
	Log      zerolog.Logger
}

// Routes mounts the admin settlement endpoints.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/overview", h.overview)
	r.Get("/tenants/{tenantId}", h.tenantSummary)
	r.Get("/top-products", h.topProducts)
	r.Get("/orders/{orderId}", h.orderLedger)
}

func (h *AdminHandler) overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.Reporter.PlatformOverview(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("settlement overview")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *AdminHandler) tenantSummary(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tenant id", nil)
		return
	}
	sum, err := h.Reporter.TenantSummary(r.Context(), tenantID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sum})
}

func (h *AdminHandler) topProducts(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r, 10, 100)
	products, err := h.Reporter.TopProducts(r.Context(), p.PerPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

func (h *AdminHandler) orderLedger(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	entries, err := h.Store.ListLedgerByOrder(r.Context(), orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	gross, commission, net := Totals(entries)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"entries":    entries,
		"gross":      gross,
		"commission": commission,
		"net":        net,
	}})
}
