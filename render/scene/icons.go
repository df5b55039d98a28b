package scene

import (
	"math"
	"sort"
)

// IconViewBox is the side of the square the icon outlines are drawn in.
const IconViewBox = 24

func ring(cx, cy, r float64) []Point {
	const steps = 32
	pts := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := float64(i) * 2 * math.Pi / steps
		pts = append(pts, Point{cx + r*math.Cos(a), cy + r*math.Sin(a)})
	}
	return pts
}

func poly(coords ...float64) []Point {
	pts := make([]Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		pts = append(pts, Point{coords[i], coords[i+1]})
	}
	return pts
}

// icons are stroke outlines in a 24x24 box, drawn with round caps.
var icons = map[string][][]Point{
	"Check":        {poly(20, 6, 9, 17, 4, 12)},
	"X":            {poly(18, 6, 6, 18), poly(6, 6, 18, 18)},
	"Plus":         {poly(12, 5, 12, 19), poly(5, 12, 19, 12)},
	"Minus":        {poly(5, 12, 19, 12)},
	"ArrowRight":   {poly(5, 12, 19, 12), poly(12, 5, 19, 12, 12, 19)},
	"ArrowLeft":    {poly(19, 12, 5, 12), poly(12, 19, 5, 12, 12, 5)},
	"ArrowUp":      {poly(12, 19, 12, 5), poly(5, 12, 12, 5, 19, 12)},
	"ArrowDown":    {poly(12, 5, 12, 19), poly(19, 12, 12, 19, 5, 12)},
	"ChevronRight": {poly(9, 18, 15, 12, 9, 6)},
	"ChevronLeft":  {poly(15, 18, 9, 12, 15, 6)},
	"Circle":       {ring(12, 12, 10)},
	"Square":       {poly(3, 3, 21, 3, 21, 21, 3, 21, 3, 3)},
	"Star": {poly(12, 2, 15.09, 8.26, 22, 9.27, 17, 14.14, 18.18, 21.02, 12, 17.77,
		5.82, 21.02, 7, 14.14, 2, 9.27, 8.91, 8.26, 12, 2)},
	"Heart": {poly(12, 21, 4, 13, 2.5, 9.5, 3.5, 5.5, 7, 3.5, 10, 4.5, 12, 7,
		14, 4.5, 17, 3.5, 20.5, 5.5, 21.5, 9.5, 20, 13, 12, 21)},
	"Zap":          {poly(13, 2, 3, 14, 12, 14, 11, 22, 21, 10, 12, 10, 13, 2)},
	"TrendingUp":   {poly(22, 7, 13.5, 15.5, 8.5, 10.5, 2, 17), poly(16, 7, 22, 7, 22, 13)},
	"TrendingDown": {poly(22, 17, 13.5, 8.5, 8.5, 13.5, 2, 7), poly(16, 17, 22, 17, 22, 11)},
	"Clock":        {ring(12, 12, 10), poly(12, 6, 12, 12, 16, 14)},
	"Sun": {ring(12, 12, 4), poly(12, 2, 12, 4), poly(12, 20, 12, 22), poly(2, 12, 4, 12),
		poly(20, 12, 22, 12), poly(4.93, 4.93, 6.34, 6.34), poly(17.66, 17.66, 19.07, 19.07),
		poly(4.93, 19.07, 6.34, 17.66), poly(17.66, 6.34, 19.07, 4.93)},
}

// Icon returns the outline of a named icon scaled to size and offset to
// (x, y).
func Icon(name string, x, y, size float64) ([][]Point, bool) {
	lines, ok := icons[name]
	if !ok {
		return nil, false
	}
	k := size / IconViewBox
	out := make([][]Point, len(lines))
	for i, line := range lines {
		pts := make([]Point, len(line))
		for j, p := range line {
			pts[j] = Point{x + p.X*k, y + p.Y*k}
		}
		out[i] = pts
	}
	return out, true
}

// IconNames lists the available icons.
func IconNames() []string {
	names := make([]string, 0, len(icons))
	for n := range icons {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
