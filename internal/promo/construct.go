package promo

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Money is a monetary amount in minor currency units (paise).
type Money = int64

// ErrInvalidConstruct marks configuration errors detected at write time.
// Evaluation never sees an invalid construct; persistence rejects it first.
var ErrInvalidConstruct = errors.New("invalid promotion construct")

// Kind discriminates the shape a cart must satisfy for a construct to match.
type Kind string

const (
	// KindFixedSet requires an exact set of (product, variant, qty) lines.
	KindFixedSet Kind = "fixed_set"
	// KindCategoryQuota requires a minimum item count within target categories.
	KindCategoryQuota Kind = "category_quota"
	// KindAnyN requires a minimum total item count regardless of product.
	KindAnyN Kind = "any_n"
)

// Mode selects how the discount amount is derived from the claimed lines.
type Mode string

const (
	// ModeFixedDiscount subtracts a flat amount, clamped to the claimed sum.
	ModeFixedDiscount Mode = "fixed_discount"
	// ModeBundlePrice reprices the claimed lines to a flat bundle total.
	ModeBundlePrice Mode = "bundle_price"
	// ModePercentCap applies a percentage of the claimed sum up to a cap.
	ModePercentCap Mode = "percent_cap"
)

// RequiredItem is one entry of a fixed-set construct's product list.
type RequiredItem struct {
	ProductID  uuid.UUID
	VariantKey string
	Qty        int32
}

// Construct is a bundle/quota promotional rule owned by a tenant.
type Construct struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Kind     Kind
	Mode     Mode

	DiscountValue Money
	BundlePrice   Money
	PercentBps    int32
	Cap           Money

	Items       []RequiredItem
	CategoryIDs []uuid.UUID
	MinItems    int32
	MinProducts int32

	Priority            int32
	AllowCouponStacking bool

	StartsAt time.Time
	EndsAt   time.Time
	IsActive bool

	UsageLimitGlobal      int32
	UsedCount             int32
	UsageLimitPerCustomer int32
}

// ActiveAt reports whether the construct may be considered at the given
// instant. The validity window is inclusive of StartsAt and exclusive of
// EndsAt.
func (c Construct) ActiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.StartsAt) {
		return false
	}
	if !c.EndsAt.IsZero() && !now.Before(c.EndsAt) {
		return false
	}
	return true
}

// Validate rejects misconfigured constructs. It is called on create/update;
// a construct that passed Validate never fails during evaluation.
func (c Construct) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConstruct)
	}
	if !c.EndsAt.IsZero() && !c.EndsAt.After(c.StartsAt) {
		return fmt.Errorf("%w: endsAt must be after startsAt", ErrInvalidConstruct)
	}
	if c.UsageLimitGlobal < 0 || c.UsageLimitPerCustomer < 0 {
		return fmt.Errorf("%w: usage limits must not be negative", ErrInvalidConstruct)
	}
	switch c.Kind {
	case KindFixedSet:
		return c.validateFixedSet()
	case KindCategoryQuota:
		return c.validateCategoryQuota()
	case KindAnyN:
		return c.validateAnyN()
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConstruct, c.Kind)
	}
}

func (c Construct) validateFixedSet() error {
	if len(c.Items) == 0 {
		return fmt.Errorf("%w: fixed-set construct needs at least one required item", ErrInvalidConstruct)
	}
	seen := make(map[RequiredItem]bool, len(c.Items))
	for _, it := range c.Items {
		if it.ProductID == uuid.Nil {
			return fmt.Errorf("%w: required item without product id", ErrInvalidConstruct)
		}
		if it.Qty <= 0 {
			return fmt.Errorf("%w: required item qty must be positive", ErrInvalidConstruct)
		}
		// Items form a set; a repeated pair would claim the same cart line
		// twice and inflate the claimed sum. Merge quantities instead.
		key := RequiredItem{ProductID: it.ProductID, VariantKey: it.VariantKey}
		if seen[key] {
			return fmt.Errorf("%w: duplicate required item %s/%s", ErrInvalidConstruct, it.ProductID, it.VariantKey)
		}
		seen[key] = true
	}
	switch c.Mode {
	case ModeFixedDiscount:
		if c.DiscountValue <= 0 {
			return fmt.Errorf("%w: fixed discount value must be positive", ErrInvalidConstruct)
		}
		if c.BundlePrice != 0 {
			return fmt.Errorf("%w: discount value and bundle price are mutually exclusive", ErrInvalidConstruct)
		}
	case ModeBundlePrice:
		if c.BundlePrice <= 0 {
			return fmt.Errorf("%w: bundle price must be positive", ErrInvalidConstruct)
		}
		if c.DiscountValue != 0 {
			return fmt.Errorf("%w: discount value and bundle price are mutually exclusive", ErrInvalidConstruct)
		}
	default:
		return fmt.Errorf("%w: fixed-set construct supports fixed_discount or bundle_price, got %q", ErrInvalidConstruct, c.Mode)
	}
	return nil
}

func (c Construct) validateCategoryQuota() error {
	if len(c.CategoryIDs) == 0 {
		return fmt.Errorf("%w: category-quota construct needs target categories", ErrInvalidConstruct)
	}
	if c.MinItems <= 0 {
		return fmt.Errorf("%w: minItems must be positive", ErrInvalidConstruct)
	}
	return c.validateValueMode()
}

func (c Construct) validateAnyN() error {
	if c.MinProducts <= 0 {
		return fmt.Errorf("%w: minProducts must be positive", ErrInvalidConstruct)
	}
	return c.validateValueMode()
}

func (c Construct) validateValueMode() error {
	switch c.Mode {
	case ModeFixedDiscount:
		if c.DiscountValue <= 0 {
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
		return fmt.Errorf("%w: quota construct supports fixed_discount or percent_cap, got %q", ErrInvalidConstruct, c.Mode)
	}
	return nil
}

// CartLine is an immutable snapshot of one cart entry at evaluation time.
// UnitPrice already reflects the product's active discount price when one
// exists.
type CartLine struct {
	ProductID   uuid.UUID
	VariantKey  string
	Qty         int32
	UnitPrice   Money
	CategoryIDs []uuid.UUID
}

// Subtotal returns qty × unit price for the line.
func (l CartLine) Subtotal() Money {
	return Money(l.Qty) * l.UnitPrice
}

// ItemsTotal sums line subtotals for a whole cart.
func ItemsTotal(cart []CartLine) Money {
	var total Money
	for _, l := range cart {
		if l.Qty <= 0 {
			continue
		}
		total += l.Subtotal()
	}
	return total
}
