package promo

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karyastore/backend-karya/internal/common"
	"github.com/karyastore/backend-karya/internal/events"
	"github.com/karyastore/backend-karya/internal/tenant"
)

func init() {
	common.RegisterError(ErrInvalidConstruct, "INVALID_CONSTRUCT", http.StatusUnprocessableEntity)
	common.RegisterError(ErrCouponNotFound, "COUPON_NOT_FOUND", http.StatusNotFound)
	common.RegisterError(ErrCouponInactive, "COUPON_INACTIVE", http.StatusUnprocessableEntity)
	common.RegisterError(ErrCouponExpired, "COUPON_EXPIRED", http.StatusUnprocessableEntity)
	common.RegisterError(ErrStackingDenied, "STACKING_DENIED", http.StatusConflict)
}

// AdminStore is the persistence surface behind the promotion admin API.
type AdminStore interface {
	ListConstructs(ctx context.Context, limit, offset int32) ([]Construct, error)
	GetConstruct(ctx context.Context, id uuid.UUID) (Construct, error)
	CreateConstruct(ctx context.Context, c Construct) (Construct, error)
	UpdateConstruct(ctx context.Context, c Construct) error
	ListCoupons(ctx context.Context, limit, offset int32) ([]Coupon, error)
	GetCoupon(ctx context.Context, code string) (Coupon, error)
	CreateCoupon(ctx context.Context, c Coupon) (Coupon, error)
	UpdateCoupon(ctx context.Context, c Coupon) error
}

// AdminHandler serves construct and coupon CRUD for operators.
type AdminHandler struct {
	Store AdminStore
	Bus   *events.Bus
	V     *validator.Validate
	Log   zerolog.Logger

	// CouponPerCustomerDefault fills the per-customer limit when a payload
	// leaves it unset.
	CouponPerCustomerDefault int32
}

// Routes mounts the admin promotion endpoints.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/constructs", h.listConstructs)
	r.Post("/constructs", h.createConstruct)
	r.Get("/constructs/{id}", h.getConstruct)
	r.Put("/constructs/{id}", h.updateConstruct)
	r.Get("/coupons", h.listCoupons)
	r.Post("/coupons", h.createCoupon)
	r.Put("/coupons/{code}", h.updateCoupon)
}

type requiredItemPayload struct {
	ProductID  uuid.UUID `json:"productId" validate:"required"`
	VariantKey string    `json:"variantKey"`
	Qty        int32     `json:"qty" validate:"required,gt=0"`
}

type constructPayload struct {
	Name                  string                `json:"name" validate:"required,max=160"`
	Kind                  string                `json:"kind" validate:"required,oneof=fixed_set category_quota any_n"`
	Mode                  string                `json:"mode" validate:"required,oneof=fixed_discount bundle_price percent_cap"`
	DiscountValue         int64                 `json:"discountValue" validate:"gte=0"`
	BundlePrice           int64                 `json:"bundlePrice" validate:"gte=0"`
	PercentBps            int32                 `json:"percentBps" validate:"gte=0,lte=10000"`
	Cap                   int64                 `json:"cap" validate:"gte=0"`
	Items                 []requiredItemPayload `json:"items" validate:"dive"`
	CategoryIDs           []uuid.UUID           `json:"categoryIds"`
	MinItems              int32                 `json:"minItems" validate:"gte=0"`
	MinProducts           int32                 `json:"minProducts" validate:"gte=0"`
	Priority              int32                 `json:"priority"`
	AllowCouponStacking   bool                  `json:"allowCouponStacking"`
	StartsAt              time.Time             `json:"startsAt" validate:"required"`
	EndsAt                *time.Time            `json:"endsAt"`
	IsActive              bool                  `json:"isActive"`
	UsageLimitGlobal      int32                 `json:"usageLimitGlobal" validate:"gte=0"`
	UsageLimitPerCustomer int32                 `json:"usageLimitPerCustomer" validate:"gte=0"`
}

func (p constructPayload) toConstruct(tenantID uuid.UUID) Construct {
	c := Construct{
		TenantID:              tenantID,
		Name:                  p.Name,
		Kind:                  Kind(p.Kind),
		Mode:                  Mode(p.Mode),
		DiscountValue:         p.DiscountValue,
		BundlePrice:           p.BundlePrice,
		PercentBps:            p.PercentBps,
		Cap:                   p.Cap,
		CategoryIDs:           p.CategoryIDs,
		MinItems:              p.MinItems,
		MinProducts:           p.MinProducts,
		Priority:              p.Priority,
		AllowCouponStacking:   p.AllowCouponStacking,
		StartsAt:              p.StartsAt,
		IsActive:              p.IsActive,
		UsageLimitGlobal:      p.UsageLimitGlobal,
		UsageLimitPerCustomer: p.UsageLimitPerCustomer,
	}
	if p.EndsAt != nil {
		c.EndsAt = *p.EndsAt
	}
	for _, it := range p.Items {
		c.Items = append(c.Items, RequiredItem{ProductID: it.ProductID, VariantKey: it.VariantKey, Qty: it.Qty})
	}
	return c
}

func (h *AdminHandler) listConstructs(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r, 20, 100)
	constructs, err := h.Store.ListConstructs(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		h.Log.Error().Err(err).Msg("list constructs")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": constructs, "pagination": p})
}

func (h *AdminHandler) getConstruct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid construct id", nil)
		return
	}
	c, err := h.Store.GetConstruct(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

func (h *AdminHandler) createConstruct(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "TENANT_REQUIRED", "X-Tenant-ID header is required", nil)
		return
	}
	var payload constructPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.V.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "payload validation failed", err.Error())
		return
	}
	created, err := h.Store.CreateConstruct(r.Context(), payload.toConstruct(tenantID))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.emit(r.Context(), events.TopicConstructCreated, created.ID)
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

func (h *AdminHandler) updateConstruct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid construct id", nil)
		return
	}
	existing, err := h.Store.GetConstruct(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload constructPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.V.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "payload validation failed", err.Error())
		return
	}
	c := payload.toConstruct(existing.TenantID)
	c.ID = id
	if err := h.Store.UpdateConstruct(r.Context(), c); err != nil {
		common.WriteError(w, err)
		return
	}
	h.emit(r.Context(), events.TopicConstructUpdated, id)
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

type couponPayload struct {
	Code                  string     `json:"code" validate:"required,max=64"`
	Mode                  string     `json:"mode" validate:"required,oneof=fixed_discount percent_cap"`
	Value                 int64      `json:"value" validate:"gte=0"`
	PercentBps            int32      `json:"percentBps" validate:"gte=0,lte=10000"`
	Cap                   int64      `json:"cap" validate:"gte=0"`
	StartsAt              time.Time  `json:"startsAt" validate:"required"`
	EndsAt                *time.Time `json:"endsAt"`
	IsActive              bool       `json:"isActive"`
	UsageLimitGlobal      int32      `json:"usageLimitGlobal" validate:"gte=0"`
	UsageLimitPerCustomer *int32     `json:"usageLimitPerCustomer" validate:"omitempty,gte=0"`
}

func (h *AdminHandler) toCoupon(p couponPayload) Coupon {
	c := Coupon{
		Code:                  p.Code,
		Mode:                  Mode(p.Mode),
		Value:                 p.Value,
		PercentBps:            p.PercentBps,
		Cap:                   p.Cap,
		StartsAt:              p.StartsAt,
		IsActive:              p.IsActive,
		UsageLimitGlobal:      p.UsageLimitGlobal,
		UsageLimitPerCustomer: h.CouponPerCustomerDefault,
	}
	if p.EndsAt != nil {
		c.EndsAt = *p.EndsAt
	}
	if p.UsageLimitPerCustomer != nil {
		c.UsageLimitPerCustomer = *p.UsageLimitPerCustomer
	}
	return c
}

func (h *AdminHandler) listCoupons(w http.ResponseWriter, r *http.Request) {
	p := common.ParsePagination(r, 20, 100)
	coupons, err := h.Store.ListCoupons(r.Context(), p.PerPage, p.Offset())
	if err != nil {
		h.Log.Error().Err(err).Msg("list coupons")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupons, "pagination": p})
}

func (h *AdminHandler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.V.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "payload validation failed", err.Error())
		return
	}
	created, err := h.Store.CreateCoupon(r.Context(), h.toCoupon(payload))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.emitCode(r.Context(), events.TopicCouponCreated, created.Code)
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

func (h *AdminHandler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := h.Store.GetCoupon(r.Context(), code); err != nil {
		common.WriteError(w, err)
		return
	}
	var payload couponPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	payload.Code = code
	if err := h.V.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "payload validation failed", err.Error())
		return
	}
	c := h.toCoupon(payload)
	if err := h.Store.UpdateCoupon(r.Context(), c); err != nil {
		common.WriteError(w, err)
		return
	}
	h.emitCode(r.Context(), events.TopicCouponUpdated, code)
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

func (h *AdminHandler) emit(ctx context.Context, topic string, id uuid.UUID) {
	if h.Bus == nil {
		return
	}
	if _, err := h.Bus.Emit(ctx, topic, id, nil); err != nil {
		h.Log.Warn().Err(err).Str("topic", topic).Msg("event emit failed")
	}
}

func (h *AdminHandler) emitCode(ctx context.Context, topic, code string) {
	if h.Bus == nil {
		return
	}
	// Coupon events aggregate on a deterministic id derived from the code.
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("coupon:"+code))
	if _, err := h.Bus.Emit(ctx, topic, id, map[string]any{"code": code}); err != nil {
		h.Log.Warn().Err(err).Str("topic", topic).Msg("event emit failed")
	}
}
