package auth

import "errors"

// Bundle rejection reasons. They are logged and never returned to clients.
var (
	ErrMalformedBundle   = errors.New("auth: malformed bundle")
	ErrUnsignedBundle    = errors.New("auth: unsigned bundle")
	ErrMissingTimestamp  = errors.New("auth: signed bundle has no timestamp")
	ErrTimestampExpired  = errors.New("auth: signed timestamp too old")
	ErrTimestampInFuture = errors.New("auth: signed timestamp too far in the future")
	ErrInvalidSignature  = errors.New("auth: invalid signature")
	ErrNotOwner          = errors.New("auth: signer does not own pin")
)

// Credential gate errors.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
)
