package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/karyastore/backend-karya/internal/tenant"
)

// GetTenant loads one tenant by id.
func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := s.Pool.QueryRow(ctx, `SELECT id, name, slug, commission_rate_bps, is_active, created_at, updated_at
		FROM tenants WHERE id = $1`, pgUUID(id)).
		Scan(&t.ID, &t.Name, &t.Slug, &t.CommissionRateBps, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.Tenant{}, ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

// TenantCommissionRateBps returns the tenant's current commission rate. The
// settler snapshots this value into each ledger entry; later edits only
// affect future settlements.
func (s *Store) TenantCommissionRateBps(ctx context.Context, id uuid.UUID) (int32, error) {
	var bps int32
	err := s.Pool.QueryRow(ctx, `SELECT commission_rate_bps FROM tenants WHERE id = $1`, pgUUID(id)).Scan(&bps)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("tenant commission rate: %w", err)
	}
	return bps, nil
}

// UpdateTenantCommissionRate changes the tenant's rate going forward.
func (s *Store) UpdateTenantCommissionRate(ctx context.Context, id uuid.UUID, bps int32) error {
	if bps < 0 || bps > 10000 {
		return fmt.Errorf("commission rate must be within [0, 10000] bps, got %d", bps)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE tenants SET commission_rate_bps = $2, updated_at = now()
		WHERE id = $1`, pgUUID(id), bps)
	if err != nil {
		return fmt.Errorf("update commission rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
