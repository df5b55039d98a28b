package layout

import "errors"

var (
	// ErrUnsupported is returned for styles the layout engine cannot honor.
	ErrUnsupported = errors.New("layout: unsupported style")

	// ErrTypeset is returned when text cannot be shaped with the loaded fonts.
	ErrTypeset = errors.New("layout: typesetting failed")
)
