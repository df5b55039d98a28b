package auth

import (
	"context"
	"net/http"
)

// Authenticator validates caller credentials.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns (nil, err) for internal errors and a
//   result with Authenticated=false for rejected credentials.
type Authenticator interface {
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(ctx context.Context, h http.Header) bool

	Authenticate(ctx context.Context, h http.Header) (*AuthResult, error)
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        AuthMethod
}

// AuthSuccess creates a successful result.
func AuthSuccess(id *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: id, Method: id.Method}
}

// AuthFailure creates a failed result.
func AuthFailure(err error, method AuthMethod) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
