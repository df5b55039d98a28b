package cache

import "errors"

var (
	// ErrNotFound is returned by Store.Get on a miss.
	ErrNotFound = errors.New("cache: not found")

	// ErrUnavailable wraps transport failures of the shared store.
	ErrUnavailable = errors.New("cache: store unavailable")

	// ErrNilCache is returned when a nil cache is supplied.
	ErrNilCache = errors.New("cache: nil cache")

	// ErrInvalidKey is returned for empty keys or keys with line breaks.
	ErrInvalidKey = errors.New("cache: invalid key")

	// ErrKeyTooLong is returned when a key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("cache: key too long")

	// ErrLockNotHeld is returned when releasing a lock whose token no longer
	// matches, typically because the TTL lapsed and another owner took it.
	ErrLockNotHeld = errors.New("cache: lock not held")
)
