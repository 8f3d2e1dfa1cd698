package checkout

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/catalog"
	"github.com/karyastore/backend-karya/internal/common"
	"github.com/karyastore/backend-karya/internal/obs"
	"github.com/karyastore/backend-karya/internal/promo"
)

func init() {
	common.RegisterError(ErrEmptyCart, "EMPTY_CART", http.StatusBadRequest)
	common.RegisterError(ErrCouponExhausted, "COUPON_EXHAUSTED", http.StatusConflict)
	common.RegisterError(catalog.ErrProductUnavailable, "PRODUCT_UNAVAILABLE", http.StatusUnprocessableEntity)
}

// Handler serves the public evaluate and place-order endpoints.
type Handler struct {
	Service *Service
	V       *validator.Validate
	Log     zerolog.Logger
}

type linePayload struct {
	ProductID  uuid.UUID `json:"productId" validate:"required"`
	VariantKey string    `json:"variantKey"`
	Qty        int32     `json:"qty" validate:"required,gt=0"`
}

type checkoutPayload struct {
	Lines         []linePayload `json:"lines" validate:"required,min=1,dive"`
	CouponCode    string        `json:"couponCode" validate:"omitempty,max=64"`
	PackingPrice  int64         `json:"packingPrice" validate:"gte=0"`
	GiftWrapPrice int64         `json:"giftWrapPrice" validate:"gte=0"`
	ShippingPrice int64         `json:"shippingPrice" validate:"gte=0"`
	TaxBps        int           `json:"taxBps" validate:"gte=0,lte=10000"`
	Booking       bool          `json:"booking"`
	Currency      string        `json:"currency" validate:"omitempty,len=3"`
	Notes         string        `json:"notes" validate:"max=500"`
}

func (p checkoutPayload) toInput(customerID uuid.UUID) Input {
	in := Input{
		CustomerID:    customerID,
		CouponCode:    p.CouponCode,
		PackingPrice:  p.PackingPrice,
		GiftWrapPrice: p.GiftWrapPrice,
		ShippingPrice: p.ShippingPrice,
		TaxBps:        p.TaxBps,
		Booking:       p.Booking,
		Currency:      p.Currency,
		Notes:         p.Notes,
	}
	if in.Currency == "" {
		in.Currency = "INR"
	}
	for _, l := range p.Lines {
		in.Lines = append(in.Lines, LineInput{ProductID: l.ProductID, VariantKey: l.VariantKey, Qty: l.Qty})
	}
	return in
}

// Evaluate previews the price breakdown without reserving usage.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var payload checkoutPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.V.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "payload validation failed", err.Error())
		return
	}
	customerID, _ := common.UserID(r.Context())
	q, err := h.Service.Evaluate(r.Context(), payload.toInput(customerID))
	if err != nil {
		h.observeEvaluation("", err)
		common.WriteError(w, err)
		return
	}
	h.observeEvaluation(evaluationResult(q), nil)
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// PlaceOrder runs the full checkout.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload checkoutPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.V.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "payload validation failed", err.Error())
		return
	}
	o, err := h.Service.PlaceOrder(r.Context(), payload.toInput(customerID))
	if err != nil {
		h.Log.Warn().Err(err).Str("customer_id", customerID.String()).Msg("checkout failed")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func evaluationResult(q Quote) string {
	switch {
	case q.AppliedConstructID != nil && q.AppliedCouponCode != "":
		return "combo_coupon"
	case q.AppliedConstructID != nil:
		return "combo"
	case q.AppliedCouponCode != "":
		return "coupon"
	default:
		return "none"
	}
}

func (h *Handler) observeEvaluation(result string, err error) {
	if obs.EvaluationTotal == nil {
		return
	}
	if err != nil {
		if errors.Is(err, promo.ErrStackingDenied) {
			obs.EvaluationTotal.WithLabelValues("stacking_denied").Inc()
		} else {
			obs.EvaluationTotal.WithLabelValues("error").Inc()
		}
		return
	}
	obs.EvaluationTotal.WithLabelValues(result).Inc()
}
