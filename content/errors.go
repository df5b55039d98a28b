package content

import "errors"

var (
	ErrInvalidContentID  = errors.New("content: invalid content identifier")
	ErrNotFound          = errors.New("content: not found")
	ErrIntegrity         = errors.New("content: bytes do not match content identifier")
	ErrMalformedManifest = errors.New("content: malformed manifest")
	ErrTooLarge          = errors.New("content: manifest too large")
)
