package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/karyastore/backend-karya/internal/pricing"
)

// Order is the persisted, frozen result of a checkout. The breakdown columns
// are never recomputed after creation; settlement reads them as-is.
type Order struct {
	ID                 uuid.UUID
	CustomerID         uuid.UUID
	Status             Status
	Booking            bool
	Currency           string
	Breakdown          pricing.Breakdown
	AppliedConstructID *uuid.UUID
	AppliedCouponCode  string
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Item is one order line. TenantID identifies the vendor owning the product;
// it drives the commission split at settlement.
type Item struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	TenantID   uuid.UUID
	ProductID  uuid.UUID
	VariantKey string
	Title      string
	Qty        int32
	UnitPrice  int64
	Subtotal   int64
}
