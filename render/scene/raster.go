package scene

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// cornerSteps is the number of segments approximating a rounded corner.
const cornerSteps = 8

// Rasterize paints the scene onto a transparent canvas.
func (s *Scene) Rasterize() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	z := vector.NewRasterizer(s.Width, s.Height)
	for _, sh := range s.Shapes {
		switch v := sh.(type) {
		case *Rect:
			drawRect(dst, z, v)
		case *Text:
			drawText(dst, v)
		case *Image:
			drawImage(dst, v)
		case *Path:
			drawPath(dst, z, v)
		}
	}
	return dst
}

// EncodePNG rasterizes the scene and writes it as PNG.
func (s *Scene) EncodePNG(w io.Writer) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, s.Rasterize())
}

func drawRect(dst *image.RGBA, z *vector.Rasterizer, r *Rect) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	outer := roundedRect(r.X, r.Y, r.W, r.H, r.Radius)
	bw := r.StrokeWidth
	if bw > 0 && r.Stroke.A > 0 {
		inner := roundedRect(r.X+bw, r.Y+bw, r.W-2*bw, r.H-2*bw, math.Max(0, r.Radius-bw))
		if r.Fill.A > 0 && len(inner) > 0 {
			fill(dst, z, r.Fill, inner)
		}
		// A reversed inner contour cancels the outer one, leaving the ring.
		fill(dst, z, r.Stroke, outer, reversed(inner))
		return
	}
	if r.Fill.A > 0 {
		fill(dst, z, r.Fill, outer)
	}
}

func drawText(dst *image.RGBA, t *Text) {
	if t.Face == nil || t.Text == "" || t.Color.A == 0 {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(t.Color),
		Face: t.Face,
		Dot:  fixed.P(int(math.Round(t.X)), int(math.Round(t.Y))),
	}
	d.DrawString(t.Text)
}

func drawImage(dst *image.RGBA, im *Image) {
	if im.Src == nil || im.W <= 0 || im.H <= 0 {
		return
	}
	dr := image.Rect(int(math.Round(im.X)), int(math.Round(im.Y)),
		int(math.Round(im.X+im.W)), int(math.Round(im.Y+im.H)))
	sr := im.SrcRect
	if sr.Empty() {
		sr = im.Src.Bounds()
	}
	if im.Radius <= 0 {
		draw.ApproxBiLinear.Scale(dst, dr, im.Src, sr, draw.Over, nil)
		return
	}

	tmp := image.NewRGBA(dr)
	draw.ApproxBiLinear.Scale(tmp, dr, im.Src, sr, draw.Src, nil)
	mask := image.NewAlpha(dr)
	z := vector.NewRasterizer(dr.Dx(), dr.Dy())
	trace(z, roundedRect(0, 0, float64(dr.Dx()), float64(dr.Dy()), im.Radius))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, dr, tmp, dr.Min, mask, dr.Min, draw.Over)
}

func drawPath(dst *image.RGBA, z *vector.Rasterizer, p *Path) {
	if p.Width <= 0 || p.Stroke.A == 0 {
		return
	}
	var polys [][]Point
	for _, line := range p.Lines {
		pts := line
		if p.Closed && len(line) > 2 {
			pts = append(append([]Point(nil), line...), line[0])
		}
		polys = append(polys, strokePolygons(pts, p.Width/2)...)
	}
	fill(dst, z, p.Stroke, polys...)
}

// fill rasterizes contours with one accumulation buffer and composites c.
func fill(dst *image.RGBA, z *vector.Rasterizer, c color.RGBA, contours ...[]Point) {
	z.Reset(dst.Bounds().Dx(), dst.Bounds().Dy())
	z.DrawOp = draw.Over
	for _, pts := range contours {
		trace(z, pts)
	}
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func trace(z *vector.Rasterizer, pts []Point) {
	if len(pts) < 3 {
		return
	}
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

// roundedRect returns a clockwise contour.
func roundedRect(x, y, w, h, r float64) []Point {
	if w <= 0 || h <= 0 {
		return nil
	}
	r = math.Min(r, math.Min(w, h)/2)
	if r <= 0 {
		return []Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	}
	corners := []struct{ cx, cy, start float64 }{
		{x + w - r, y + r, -math.Pi / 2},
		{x + w - r, y + h - r, 0},
		{x + r, y + h - r, math.Pi / 2},
		{x + r, y + r, math.Pi},
	}
	pts := make([]Point, 0, 4*(cornerSteps+1))
	for _, c := range corners {
		for i := 0; i <= cornerSteps; i++ {
			a := c.start + float64(i)*(math.Pi/2)/cornerSteps
			pts = append(pts, Point{c.cx + r*math.Cos(a), c.cy + r*math.Sin(a)})
		}
	}
	return pts
}

func reversed(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// clockwise orients pts so overlapping contours add coverage instead of
// cancelling.
func clockwise(pts []Point) []Point {
	var area float64
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	if area < 0 {
		return reversed(pts)
	}
	return pts
}

// strokePolygons turns a polyline into segment quads and round joins.
func strokePolygons(line []Point, half float64) [][]Point {
	var polys [][]Point
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		polys = append(polys, clockwise([]Point{
			{a.X + nx, a.Y + ny}, {b.X + nx, b.Y + ny},
			{b.X - nx, b.Y - ny}, {a.X - nx, a.Y - ny},
		}))
	}
	for _, p := range line {
		polys = append(polys, circle(p, half))
	}
	return polys
}

func circle(c Point, r float64) []Point {
	const steps = 12
	pts := make([]Point, steps)
	for i := range pts {
		a := float64(i) * 2 * math.Pi / steps
		pts[i] = Point{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)}
	}
	return pts
}
