package auth

import (
	"context"
	"time"

	"github.com/glowcare/storefront/internal/catalog"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject   string
	Role      Role
	Username  string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AccessLevel maps the principal to the catalog visibility rule.
func (p Principal) AccessLevel() catalog.AccessLevel {
	if p.IsAdmin() {
		return catalog.AccessAdmin
	}
	return catalog.AccessPublic
}

type principalKey struct{}

// ContextWithPrincipal stores the principal on ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
