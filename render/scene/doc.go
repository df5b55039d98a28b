// Package scene is the vector scene graph produced by layout. A Scene can
// be serialized to SVG or rasterized to a PNG of its fixed size.
package scene
