package scene

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
)

// Point is a position in scene pixels.
type Point struct{ X, Y float64 }

// Shape is one drawable primitive. Shapes are painted in slice order.
type Shape interface {
	isShape()
}

// Rect is a filled, optionally rounded and bordered rectangle.
type Rect struct {
	X, Y, W, H  float64
	Radius      float64
	Fill        color.RGBA
	Stroke      color.RGBA
	StrokeWidth float64
}

// Text is a single line of text. Y is the baseline.
type Text struct {
	X, Y   float64
	Text   string
	Face   font.Face
	Family string
	Size   float64
	Weight int
	Color  color.RGBA
}

// Image is a raster image scaled into its box. Src may be nil when only
// Href is known, in which case rasterization skips it.
type Image struct {
	X, Y, W, H float64
	Radius     float64
	Src        image.Image
	// SrcRect selects part of Src. Zero means all of it.
	SrcRect image.Rectangle
	Href    string
}

// Path is a set of stroked polylines.
type Path struct {
	Lines  [][]Point
	Closed bool
	Stroke color.RGBA
	Width  float64
}

func (*Rect) isShape()  {}
func (*Text) isShape()  {}
func (*Image) isShape() {}
func (*Path) isShape()  {}

// Scene is a fixed-size canvas of shapes.
type Scene struct {
	Width, Height int
	Shapes        []Shape
}

// New creates an empty scene.
func New(width, height int) *Scene {
	return &Scene{Width: width, Height: height}
}

// Add appends shapes.
func (s *Scene) Add(shapes ...Shape) {
	s.Shapes = append(s.Shapes, shapes...)
}
