package promo

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCouponNotFound is returned when the supplied code matches no coupon.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponInactive is returned when the coupon is disabled or used
	// before its validity window opens.
	ErrCouponInactive = errors.New("coupon not active")
	// ErrCouponExpired is returned when the coupon's validity window closed.
	ErrCouponExpired = errors.New("coupon expired")
)

// Coupon is a code-based discount. Coupons reuse the fixed-discount and
// percentage-with-cap pricing modes of combo constructs and carry the same
// usage counter shape.
type Coupon struct {
	Code       string
	Mode       Mode
	Value      Money
	PercentBps int32
	Cap        Money

	StartsAt time.Time
	EndsAt   time.Time
	IsActive bool

	UsageLimitGlobal      int32
	UsedCount             int32
	UsageLimitPerCustomer int32
}

// Validate rejects misconfigured coupons at write time.
func (c Coupon) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidConstruct)
	}
	if !c.EndsAt.IsZero() && !c.EndsAt.After(c.StartsAt) {
		return fmt.Errorf("%w: endsAt must be after startsAt", ErrInvalidConstruct)
	}
	if c.UsageLimitGlobal < 0 || c.UsageLimitPerCustomer < 0 {
		return fmt.Errorf("%w: usage limits must not be negative", ErrInvalidConstruct)
	}
	switch c.Mode {
	case ModeFixedDiscount:
		if c.Value <= 0 {
			return fmt.Errorf("%w: fixed discount value must be positive", ErrInvalidConstruct)
		}
	case ModePercentCap:
		if c.PercentBps <= 0 || c.PercentBps > 10000 {
			return fmt.Errorf("%w: percent must be within (0, 100]", ErrInvalidConstruct)
		}
		if c.Cap < 0 {
			return fmt.Errorf("%w: cap must not be negative", ErrInvalidConstruct)
		}
	default:
		return fmt.Errorf("%w: coupon supports fixed_discount or percent_cap, got %q", ErrInvalidConstruct, c.Mode)
	}
	return nil
}

// CheckWindow validates the coupon against the clock, returning a distinct
// error per failure so callers can explain the rejection.
func (c Coupon) CheckWindow(now time.Time) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if now.Before(c.StartsAt) {
		return ErrCouponInactive
	}
	if !c.EndsAt.IsZero() && !now.Before(c.EndsAt) {
		return ErrCouponExpired
	}
	return nil
}

// CouponDiscount computes the coupon's discount over the given base amount,
// clamped so the discount never exceeds the base.
func CouponDiscount(base Money, c Coupon) Money {
	if base <= 0 {
		return 0
	}
	switch c.Mode {
	case ModeFixedDiscount:
		return clampMoney(c.Value, base)
	case ModePercentCap:
		d := percentOf(base, c.PercentBps)
		if c.Cap > 0 && d > c.Cap {
			d = c.Cap
		}
		return clampMoney(d, base)
	default:
		return 0
	}
}
