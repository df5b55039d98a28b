package layout

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// parseColor reads a CSS color. The result is alpha-premultiplied.
func parseColor(s string, current color.RGBA) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return color.RGBA{}, false
	case s == "transparent":
		return color.RGBA{}, true
	case s == "currentcolor":
		return current, true
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseRGBFunc(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return c, true
	}
	return color.RGBA{}, false
}

func parseHex(h string) (color.RGBA, bool) {
	expand := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		return b.String()
	}
	switch len(h) {
	case 3, 4:
		h = expand(h)
	case 6, 8:
	default:
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return color.RGBA{}, false
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return premultiply(uint8(v>>24), uint8(v>>16), uint8(v>>8), float64(uint8(v))/255), true
}

func parseRGBFunc(s string) (color.RGBA, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.RGBA{}, false
	}
	body := strings.NewReplacer(",", " ", "/", " ").Replace(s[open+1 : end])
	parts := strings.Fields(body)
	if len(parts) < 3 {
		return color.RGBA{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		f, ok := channel(parts[i])
		if !ok {
			return color.RGBA{}, false
		}
		ch[i] = uint8(math.Round(f))
	}
	alpha := 1.0
	if len(parts) > 3 {
		p := parts[3]
		if pct, ok := strings.CutSuffix(p, "%"); ok {
			f, err := strconv.ParseFloat(pct, 64)
			if err != nil {
				return color.RGBA{}, false
			}
			alpha = f / 100
		} else {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return color.RGBA{}, false
			}
			alpha = f
		}
	}
	return premultiply(ch[0], ch[1], ch[2], clamp01(alpha)), true
}

func channel(p string) (float64, bool) {
	if pct, ok := strings.CutSuffix(p, "%"); ok {
		f, err := strconv.ParseFloat(pct, 64)
		return math.Max(0, math.Min(255, f*255/100)), err == nil
	}
	f, err := strconv.ParseFloat(p, 64)
	return math.Max(0, math.Min(255, f)), err == nil
}

func premultiply(r, g, b uint8, a float64) color.RGBA {
	return color.RGBA{
		R: uint8(math.Round(float64(r) * a)),
		G: uint8(math.Round(float64(g) * a)),
		B: uint8(math.Round(float64(b) * a)),
		A: uint8(math.Round(255 * a)),
	}
}

// fade scales a premultiplied color by opacity.
func fade(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	return color.RGBA{
		R: uint8(math.Round(float64(c.R) * opacity)),
		G: uint8(math.Round(float64(c.G) * opacity)),
		B: uint8(math.Round(float64(c.B) * opacity)),
		A: uint8(math.Round(float64(c.A) * opacity)),
	}
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// splitTop splits s on sep outside parentheses.
func splitTop(s string, sep rune) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == sep && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

type stop struct {
	c   color.RGBA
	pos float64
}

// gradient is a parsed linear-gradient().
type gradient struct {
	angle float64 // degrees, CSS convention: 0 points up, 90 right
	stops []stop
}

func parseGradient(s string) (*gradient, error) {
	s = strings.TrimSpace(s)
	body, ok := strings.CutPrefix(s, "linear-gradient(")
	if !ok || !strings.HasSuffix(body, ")") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	args := splitTop(strings.TrimSuffix(body, ")"), ',')
	g := &gradient{angle: 180}
	if len(args) > 0 {
		first := strings.ToLower(args[0])
		if deg, ok := strings.CutSuffix(first, "deg"); ok {
			if f, err := strconv.ParseFloat(deg, 64); err == nil {
				g.angle = f
				args = args[1:]
			}
		} else if dir, ok := strings.CutPrefix(first, "to "); ok {
			g.angle = map[string]float64{
				"top": 0, "right": 90, "bottom": 180, "left": 270,
				"top right": 45, "right top": 45, "bottom right": 135, "right bottom": 135,
				"bottom left": 225, "left bottom": 225, "top left": 315, "left top": 315,
			}[dir]
			args = args[1:]
		}
	}
	for _, a := range args {
		parts := splitTop(a, ' ')
		c, ok := parseColor(parts[0], color.RGBA{})
		if !ok {
			return nil, fmt.Errorf("%w: gradient stop %q", ErrUnsupported, a)
		}
		st := stop{c: c, pos: -1}
		if len(parts) > 1 {
			if pct, ok := strings.CutSuffix(parts[1], "%"); ok {
				if f, err := strconv.ParseFloat(pct, 64); err == nil {
					st.pos = f / 100
				}
			}
		}
		g.stops = append(g.stops, st)
	}
	if len(g.stops) < 2 {
		return nil, fmt.Errorf("%w: gradient needs two stops", ErrUnsupported)
	}
	for i := range g.stops {
		if g.stops[i].pos < 0 {
			g.stops[i].pos = float64(i) / float64(len(g.stops)-1)
		}
	}
	return g, nil
}

// image renders the gradient into a w x h image.
func (g *gradient) image(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rad := g.angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(float64(w)*dx) + math.Abs(float64(h)*dy)) / 2
	if half == 0 {
		half = 1
	}
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := ((float64(x)+0.5-cx)*dx + (float64(y)+0.5-cy)*dy) / (2 * half)
			img.SetRGBA(x, y, g.at(t+0.5))
		}
	}
	return img
}

func (g *gradient) at(t float64) color.RGBA {
	if t <= g.stops[0].pos {
		return g.stops[0].c
	}
	for i := 1; i < len(g.stops); i++ {
		a, b := g.stops[i-1], g.stops[i]
		if t <= b.pos {
			span := b.pos - a.pos
			if span <= 0 {
				return b.c
			}
			f := (t - a.pos) / span
			lerp := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f)) }
			return color.RGBA{R: lerp(a.c.R, b.c.R), G: lerp(a.c.G, b.c.G), B: lerp(a.c.B, b.c.B), A: lerp(a.c.A, b.c.A)}
		}
	}
	return g.stops[len(g.stops)-1].c
}
