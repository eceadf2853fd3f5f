package auth

import (
	"context"
	"time"
)

// Method names how a principal was authenticated.
const (
	MethodSession = "session"
	MethodBasic   = "basic"
)

// Principal is an authenticated admin.
type Principal struct {
	Username  string
	Method    string
	SessionID string
	// ExpiresAt is zero for per-request credentials.
	ExpiresAt time.Time
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}
