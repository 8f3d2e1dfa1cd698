package tenant

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant is one vendor on the marketplace. CommissionRateBps is the
// platform's cut in basis points; the settler snapshots it per ledger entry,
// so changing it never rewrites history.
type Tenant struct {
	ID                uuid.UUID
	Name              string
	Slug              string
	CommissionRateBps int32
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type contextKey struct{}

// With stores the tenant id in the context.
func With(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// From extracts the tenant id from the context if one was resolved.
func From(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// PrefixKey namespaces a cache or queue key per tenant.
func PrefixKey(id uuid.UUID, key string) string {
	if id == uuid.Nil {
		return key
	}
	return id.String() + ":" + key
}

// Middleware resolves the tenant from the X-Tenant-ID header and injects it
// into the request context. Requests without the header pass through
// untouched; handlers that require a tenant reject them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
		if raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = r.WithContext(With(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
