package auth

import (
	"context"

	"github.com/jwalitptl/clinic-api/pkg/auth"
)

type claimsKey struct{}

// WithClaims attaches the verified token claims of the caller to ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}
