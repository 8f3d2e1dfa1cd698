package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Cache is a read-through Redis cache over a Provider. Cache failures are
// logged and degrade to the inner provider; checkout never fails on a cold
// or broken cache.
type Cache struct {
	Client *redis.Client
	Inner  Provider
	TTL    time.Duration
	Log    zerolog.Logger
}

func cacheKey(id uuid.UUID) string {
	return "catalog:snapshot:" + id.String()
}

// ProductSnapshots serves cached snapshots and fetches only the misses from
// the inner provider.
func (c *Cache) ProductSnapshots(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	if c.Client == nil {
		return c.Inner.ProductSnapshots(ctx, ids)
	}
	ids = lo.Uniq(ids)
	out := make(map[uuid.UUID]Snapshot, len(ids))

	keys := lo.Map(ids, func(id uuid.UUID, _ int) string { return cacheKey(id) })
	cached, err := c.Client.MGet(ctx, keys...).Result()
	if err != nil {
		c.Log.Warn().Err(err).Msg("catalog cache read failed, falling back to store")
		return c.Inner.ProductSnapshots(ctx, ids)
	}

	var misses []uuid.UUID
	for i, raw := range cached {
		str, ok := raw.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(str), &snap); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		out[ids[i]] = snap
	}
	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := c.Inner.ProductSnapshots(ctx, misses)
	if err != nil {
		return nil, err
	}
	pipe := c.Client.Pipeline()
	for id, snap := range fresh {
		out[id] = snap
		if encoded, err := json.Marshal(snap); err == nil {
			pipe.Set(ctx, cacheKey(id), encoded, c.TTL)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.Log.Warn().Err(err).Msg("catalog cache write failed")
	}
	return out, nil
}

// Invalidate drops cached snapshots after a product update.
func (c *Cache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if c.Client == nil || len(ids) == 0 {
		return
	}
	keys := lo.Map(ids, func(id uuid.UUID, _ int) string { return cacheKey(id) })
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		c.Log.Warn().Err(err).Msg("catalog cache invalidate failed")
	}
}
