package settlement

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is one append-only commission record per order line. The
// commission rate is snapshotted at settlement time; later tenant rate edits
// never alter an existing entry.
type LedgerEntry struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	OrderItemID       uuid.UUID
	TenantID          uuid.UUID
	ProductID         uuid.UUID
	LineRevenue       int64
	CommissionRateBps int32
	CommissionAmount  int64
	NetAmount         int64
	SettledAt         time.Time
}

// TenantSummary aggregates a tenant's settled figures.
type TenantSummary struct {
	TenantID         uuid.UUID
	OrderCount       int64
	GrossRevenue     int64
	CommissionAmount int64
	NetRevenue       int64
}

// Overview aggregates platform-wide settled figures.
type Overview struct {
	SettledOrders    int64
	GrossRevenue     int64
	CommissionAmount int64
	NetPayouts       int64
}

// ProductCommission ranks one product by its accumulated commission.
type ProductCommission struct {
	ProductID        uuid.UUID
	TenantID         uuid.UUID
	Orders           int64
	LineRevenue      int64
	CommissionAmount int64
}
