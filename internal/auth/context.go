// ABOUTME: Carries the token-authenticated user id through request handlers
// ABOUTME: Set by RequireToken, read by handlers with FromContext/MustFromContext

package auth

import (
	"context"
)

// AuthContext holds the authenticated identity extracted from a validated
// access token. Handlers must take the caller's identity from here and
// never from request parameters.
type AuthContext struct {
	UserID int64
}

type authContextKey struct{}

// WithAuth attaches the caller to ctx.
func WithAuth(ctx context.Context, caller *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, caller)
}

// FromContext returns the caller attached by RequireToken, or nil on
// unauthenticated routes.
func FromContext(ctx context.Context) *AuthContext {
	caller, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return caller
}

// MustFromContext is FromContext for handlers mounted behind RequireToken.
// A missing caller there is a routing bug, so it panics.
func MustFromContext(ctx context.Context) *AuthContext {
	caller := FromContext(ctx)
	if caller == nil {
		panic("auth: no authenticated caller in context")
	}
	return caller
}
