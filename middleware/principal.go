package middleware

import (
	"context"
	"time"
)

type principalContextKey struct{}

// Principal is the authenticated caller attached by [Structural].
type Principal struct {
	Subject   string
	Role      string
	TID       string
	ExpiresAt time.Time
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
