package layout

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/jonwraymond/pinog/render/jsx"
	"github.com/jonwraymond/pinog/render/scene"
)

// emit paints b and its descendants in document order.
func (e *engine) emit(sc *scene.Scene, b *box, opacity float64) error {
	op := opacity * b.st.opacity
	if op <= 0 || b.w < 0 || b.h < 0 {
		return nil
	}
	radius := min(b.st.borderRadius, b.w/2, b.h/2)
	border := b.st.borderWidth > 0 && b.st.borderColor.A > 0
	layers := []string(nil)
	if b.st.backgroundImage != "" {
		layers = splitTop(b.st.backgroundImage, ',')
	}

	if b.st.background.A > 0 || (border && len(layers) == 0) {
		r := &scene.Rect{X: b.x, Y: b.y, W: b.w, H: b.h, Radius: radius, Fill: fade(b.st.background, op)}
		if len(layers) == 0 && border {
			r.Stroke, r.StrokeWidth = fade(b.st.borderColor, op), b.st.borderWidth
		}
		sc.Add(r)
	}
	for i := len(layers) - 1; i >= 0; i-- {
		if err := e.emitBackground(sc, b, layers[i], radius); err != nil {
			return err
		}
	}
	if len(layers) > 0 && border {
		sc.Add(&scene.Rect{X: b.x, Y: b.y, W: b.w, H: b.h, Radius: radius,
			Stroke: fade(b.st.borderColor, op), StrokeWidth: b.st.borderWidth})
	}

	t, r, bt, l := b.inset(b.w)
	cx, cy := b.x+l, b.y+t
	cw, ch := max(b.w-l-r, 0), max(b.h-t-bt, 0)

	switch b.kind {
	case kindImage:
		if im := fit(b.img, cx, cy, cw, ch, b.st.objectFit); im != nil {
			im.Radius = radius
			im.Href = b.src
			sc.Add(im)
		} else if b.src != "" {
			sc.Add(&scene.Image{X: cx, Y: cy, W: cw, H: ch, Radius: radius, Href: b.src})
		}
	case kindIcon:
		size := min(cw, ch)
		if lines, ok := scene.Icon(b.icon, cx+(cw-size)/2, cy+(ch-size)/2, size); ok {
			sc.Add(&scene.Path{
				Lines:  lines,
				Stroke: fade(b.st.color, op),
				Width:  b.stroke * size / scene.IconViewBox,
			})
		}
	case kindText:
		e.emitText(sc, b, cx, cy, cw, op)
	}

	for _, c := range b.children {
		if err := e.emit(sc, c, op); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) emitBackground(sc *scene.Scene, b *box, layer string, radius float64) error {
	w, h := int(math.Round(b.w)), int(math.Round(b.h))
	if w <= 0 || h <= 0 {
		return nil
	}
	if strings.HasPrefix(layer, "linear-gradient(") {
		g, err := parseGradient(layer)
		if err != nil {
			return err
		}
		sc.Add(&scene.Image{X: b.x, Y: b.y, W: b.w, H: b.h, Radius: radius, Src: g.image(w, h)})
		return nil
	}
	if strings.Contains(layer, "gradient(") {
		return fmt.Errorf("%w: background %q", ErrUnsupported, layer)
	}
	u, ok := jsx.BackgroundURL(layer)
	if !ok {
		return nil
	}
	mode := "cover"
	switch b.st.backgroundSize {
	case "contain":
		mode = "contain"
	case "100% 100%":
		mode = "fill"
	}
	if im := fit(e.opts.Images[u], b.x, b.y, b.w, b.h, mode); im != nil {
		im.Radius = radius
		im.Href = u
		sc.Add(im)
	}
	return nil
}

// fit places src into the given box per an object-fit mode.
func fit(src image.Image, x, y, w, h float64, mode string) *scene.Image {
	if src == nil || w <= 0 || h <= 0 {
		return nil
	}
	bounds := src.Bounds()
	iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
	if iw <= 0 || ih <= 0 {
		return nil
	}
	im := &scene.Image{X: x, Y: y, W: w, H: h, Src: src}
	switch mode {
	case "cover":
		scale := max(w/iw, h/ih)
		sw, sh := w/scale, h/scale
		sx, sy := (iw-sw)/2, (ih-sh)/2
		im.SrcRect = image.Rect(
			bounds.Min.X+int(math.Round(sx)), bounds.Min.Y+int(math.Round(sy)),
			bounds.Min.X+int(math.Round(sx+sw)), bounds.Min.Y+int(math.Round(sy+sh)),
		)
	case "contain", "scale-down":
		scale := min(w/iw, h/ih)
		if mode == "scale-down" {
			scale = min(scale, 1)
		}
		im.W, im.H = iw*scale, ih*scale
		im.X, im.Y = x+(w-im.W)/2, y+(h-im.H)/2
	}
	return im
}

func (e *engine) emitText(sc *scene.Scene, b *box, x, y, w, op float64) {
	face := e.ts.face(b.st)
	if face == nil {
		return
	}
	lh := b.lineHeight()
	ascent, descent := e.ts.metrics(b.st)
	col := fade(b.st.color, op)
	for i, ln := range b.wrap(w) {
		top := y + float64(i)*lh
		baseline := top + (lh-(ascent+descent))/2 + ascent
		var dx float64
		switch b.st.textAlign {
		case "center":
			dx = (w - ln.width) / 2
		case "right", "end":
			dx = w - ln.width
		}
		for _, s := range ln.segs {
			if s.emoji != nil {
				size := b.st.fontSize
				sc.Add(&scene.Image{X: x + dx + s.x, Y: top + (lh-size)/2, W: size, H: size, Src: s.emoji})
				continue
			}
			if strings.TrimSpace(s.text) == "" {
				continue
			}
			sc.Add(&scene.Text{
				X: x + dx + s.x, Y: baseline,
				Text: s.text, Face: face,
				Family: b.st.fontFamily, Size: b.st.fontSize, Weight: b.st.fontWeight,
				Color: col,
			})
		}
	}
}
