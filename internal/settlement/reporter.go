package settlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// AggregateStore is the read surface behind the settlement projections.
type AggregateStore interface {
	TenantLedgerSummary(ctx context.Context, tenantID uuid.UUID) (TenantSummary, error)
	PlatformOverview(ctx context.Context) (Overview, error)
	TopProductsByCommission(ctx context.Context, limit int32) ([]ProductCommission, error)
}

// Reporter serves settlement aggregates with a short-lived Redis cache in
// front. Aggregates lag by at most the TTL; the ledger itself stays the
// source of truth.
type Reporter struct {
	Store AggregateStore
	Cache *redis.Client
	TTL   time.Duration
	Log   zerolog.Logger
}

// TenantSummary returns the tenant's settled totals.
func (r *Reporter) TenantSummary(ctx context.Context, tenantID uuid.UUID) (TenantSummary, error) {
	key := "settlement:tenant:" + tenantID.String()
	var sum TenantSummary
	if r.cachedInto(ctx, key, &sum) {
		return sum, nil
	}
	sum, err := r.Store.TenantLedgerSummary(ctx, tenantID)
	if err != nil {
		return TenantSummary{}, err
	}
	r.cache(ctx, key, sum)
	return sum, nil
}

// PlatformOverview returns the platform-wide settled totals.
func (r *Reporter) PlatformOverview(ctx context.Context) (Overview, error) {
	const key = "settlement:overview"
	var o Overview
	if r.cachedInto(ctx, key, &o) {
		return o, nil
	}
	o, err := r.Store.PlatformOverview(ctx)
	if err != nil {
		return Overview{}, err
	}
	r.cache(ctx, key, o)
	return o, nil
}

// TopProducts ranks products by accumulated commission.
func (r *Reporter) TopProducts(ctx context.Context, limit int32) ([]ProductCommission, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return r.Store.TopProductsByCommission(ctx, limit)
}

// Totals reduces a batch of ledger entries into one summary line. Handlers
// use it to echo per-order splits without another query.
func Totals(entries []LedgerEntry) (gross, commission, net int64) {
	gross = lo.SumBy(entries, func(e LedgerEntry) int64 { return e.LineRevenue })
	commission = lo.SumBy(entries, func(e LedgerEntry) int64 { return e.CommissionAmount })
	net = lo.SumBy(entries, func(e LedgerEntry) int64 { return e.NetAmount })
	return gross, commission, net
}

func (r *Reporter) cachedInto(ctx context.Context, key string, dst any) bool {
	if r.Cache == nil {
		return false
	}
	raw, err := r.Cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (r *Reporter) cache(ctx context.Context, key string, v any) {
	if r.Cache == nil {
		return
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, encoded, ttl).Err(); err != nil {
		r.Log.Warn().Err(err).Str("key", key).Msg("settlement aggregate cache write failed")
	}
}
