package auth

import (
	"context"
	"time"
)

// AuthMethod indicates how a caller was authenticated.
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// Identity is an authenticated caller of the preview endpoints.
type Identity struct {
	Principal string
	Method    AuthMethod
	Claims    map[string]any
	ExpiresAt time.Time
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the gate, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
