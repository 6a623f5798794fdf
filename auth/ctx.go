package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultContextKey is the Locals key holding the principal
const DefaultContextKey = "user"

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal in the context
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// GetPrincipal extracts the principal stored by the authentication filter
// from the request context, checking Locals first and the standard
// context second.
func GetPrincipal(c router.Context, key ...string) (*Principal, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}

	if raw, ok := c.Locals(k).(*Principal); ok && raw != nil {
		return raw, true
	}

	return PrincipalFromContext(c.Context())
}
