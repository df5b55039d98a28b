// Package pipeline is the worker side of the renderer. It turns one Input
// message into image bytes:
//
//  1. transpile and evaluate the UI code (render/jsx)
//  2. fetch the custom fonts named by the module config
//  3. fetch emoji glyphs and referenced images (render/assets)
//  4. lay out the element tree (render/layout)
//  5. encode the scene as PNG or SVG (render/scene)
//
// A module that fails to evaluate is a hard failure. A layout or
// typesetting failure renders the fallback scene instead.
//
// Serve implements the subprocess protocol: a single JSON Input on stdin,
// the encoded image on stdout.
package pipeline
