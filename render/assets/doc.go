// Package assets loads what a render needs besides the element tree: emoji
// glyph images, custom fonts and referenced images.
//
// Remote fetches go through Fetcher, which collapses concurrent requests
// for the same URL and keeps results for the life of the worker. data: URIs
// are decoded locally.
package assets
