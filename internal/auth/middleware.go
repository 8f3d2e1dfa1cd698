// Package auth parses bearer tokens for the admin surface. Token issuance
// lives in the identity service; this package only verifies and extracts
// claims.
package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/karyastore/backend-karya/internal/common"
)

// RoleAdmin marks platform operators allowed on the admin surface.
const RoleAdmin = "admin"

// Middleware verifies HS256 bearer tokens and stores the subject and roles
// on the request context. Requests without a token pass through anonymous;
// RequireRole gates the protected routes.
type Middleware struct {
	Secret []byte
}

func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(raw, "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}
		token, err := jwt.Parse([]byte(strings.TrimPrefix(raw, "Bearer ")),
			jwt.WithKey(jwa.HS256, m.Secret),
			jwt.WithValidate(true),
		)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
			return
		}
		ctx := r.Context()
		if sub, err := uuid.Parse(token.Subject()); err == nil {
			ctx = common.WithUserID(ctx, sub)
		}
		if raw, ok := token.Get("roles"); ok {
			if roles := toStrings(raw); len(roles) > 0 {
				ctx = common.WithRoles(ctx, roles)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose token does not carry the role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !common.HasRole(r.Context(), role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects unauthenticated requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserID(r.Context()); !ok {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func toStrings(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
