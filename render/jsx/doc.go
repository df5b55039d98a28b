// Package jsx turns user-authored UI code into an element tree.
//
// The source is JSX or TSX. It is transpiled with esbuild to CommonJS and
// evaluated in a goja runtime that sees only React.createElement, Fragment,
// a fixed icon library and require for "react" and "lucide-react".
// Element construction is intercepted:
//
//   - div elements default to display: flex
//   - source.unsplash.com URLs in src, backgroundImage and background are
//     replaced by FallbackPhotoURL
//   - root-relative src and url(/...) backgrounds are resolved against the
//     base URL
//   - img elements without a usable src get TransparentPixel
//
// Function components are expanded while the tree is built, so the result
// contains only host elements and text.
package jsx
