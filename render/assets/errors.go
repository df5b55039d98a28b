package assets

import "errors"

var (
	// ErrFetch is returned when a remote asset cannot be retrieved.
	ErrFetch = errors.New("assets: fetch failed")

	// ErrTooLarge is returned when an asset exceeds MaxAssetSize.
	ErrTooLarge = errors.New("assets: asset too large")

	// ErrUnsupportedScheme is returned for URLs that are neither http(s) nor data.
	ErrUnsupportedScheme = errors.New("assets: unsupported url scheme")

	// ErrDecode is returned when image or font bytes cannot be parsed.
	ErrDecode = errors.New("assets: decode failed")
)
