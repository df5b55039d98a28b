// Package layout places a jsx element tree on a fixed-size canvas using a
// flexbox subset and emits the resulting scene.
//
// Supported: display flex, block (laid out as a column) and none;
// flexDirection, flexWrap, justifyContent, alignItems, alignSelf, flexGrow,
// flexShrink, flexBasis, gap, width/height with min and max, padding,
// margin, absolute positioning, borders and radius, opacity, background
// colors, linear gradients and images, text with wrapping, alignment and
// inherited font properties, emoji glyphs, images and icons.
//
// Anything else that changes geometry, such as grid, is rejected with
// ErrUnsupported so the caller can fall back.
package layout
