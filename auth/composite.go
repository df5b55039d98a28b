package auth

import (
	"context"
	"net/http"
)

// CompositeAuthenticator tries authenticators in order and returns the
// first success.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{authenticators: auths}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string { return "composite" }

// Supports reports whether any member supports the request.
func (c *CompositeAuthenticator) Supports(ctx context.Context, h http.Header) bool {
	for _, a := range c.authenticators {
		if a.Supports(ctx, h) {
			return true
		}
	}
	return false
}

// Authenticate returns the first success, or the last failure.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, h http.Header) (*AuthResult, error) {
	var last *AuthResult
	for _, a := range c.authenticators {
		if !a.Supports(ctx, h) {
			continue
		}
		res, err := a.Authenticate(ctx, h)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		last = res
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredentials, ""), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
