package layout

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// length is a CSS length. Percentages resolve against a basis.
type length struct {
	v    float64
	pct  bool
	auto bool
	set  bool
}

func (l length) resolve(basis float64) (float64, bool) {
	if !l.set || l.auto {
		return 0, false
	}
	if l.pct {
		if basis < 0 {
			return 0, false
		}
		return l.v / 100 * basis, true
	}
	return l.v, true
}

func (l length) or(basis, def float64) float64 {
	if v, ok := l.resolve(basis); ok {
		return v
	}
	return def
}

type edges [4]length // top right bottom left

func (e edges) resolve(basis float64) (top, right, bottom, left float64) {
	return e[0].or(basis, 0), e[1].or(basis, 0), e[2].or(basis, 0), e[3].or(basis, 0)
}

// style is the computed style of one box.
type style struct {
	display    string
	direction  string
	wrap       bool
	justify    string
	alignItems string
	alignSelf  string
	grow       float64
	shrink     float64
	basis      length

	width, height       length
	minW, minH          length
	maxW, maxH          length
	padding, margin     edges
	rowGap, columnGap   float64
	position            string
	top, right          length
	bottom, left        length
	background          color.RGBA
	backgroundImage     string
	backgroundSize      string
	borderWidth         float64
	borderColor         color.RGBA
	borderRadius        float64
	opacity             float64
	objectFit           string

	// Inherited.
	color         color.RGBA
	fontSize      float64
	fontWeight    int
	fontFamily    string
	italic        bool
	lineHeight    float64 // multiplier of fontSize
	textAlign     string
	textTransform string
}

func rootStyle() style {
	return style{
		color:      color.RGBA{A: 0xff},
		fontSize:   16,
		fontWeight: 400,
		fontFamily: "Inter",
		lineHeight: 1.2,
		textAlign:  "left",
	}
}

// inherit returns the defaults for a child of parent.
func (parent style) inherit() style {
	return style{
		display:       "flex",
		direction:     "row",
		justify:       "flex-start",
		alignItems:    "stretch",
		shrink:        1,
		opacity:       1,
		borderColor:   parent.color,
		color:         parent.color,
		fontSize:      parent.fontSize,
		fontWeight:    parent.fontWeight,
		fontFamily:    parent.fontFamily,
		italic:        parent.italic,
		lineHeight:    parent.lineHeight,
		textAlign:     parent.textAlign,
		textTransform: parent.textTransform,
	}
}

// computeStyle applies declarations to the inherited defaults.
func computeStyle(parent style, decl map[string]any) (style, error) {
	s := parent.inherit()
	get := func(k string) (string, bool) {
		v, ok := decl[k]
		if !ok || v == nil {
			return "", false
		}
		switch x := v.(type) {
		case string:
			return strings.TrimSpace(x), true
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		case int64:
			return strconv.FormatInt(x, 10), true
		case int:
			return strconv.Itoa(x), true
		}
		return fmt.Sprint(v), true
	}

	// Font size first: em lengths depend on it.
	if v, ok := get("fontSize"); ok {
		if l, ok := parseLength(v, parent.fontSize); ok && !l.auto {
			if l.pct {
				s.fontSize = l.v / 100 * parent.fontSize
			} else {
				s.fontSize = l.v
			}
		}
	}
	em := s.fontSize
	if v, ok := get("color"); ok {
		if c, ok := parseColor(v, parent.color); ok {
			s.color = c
			s.borderColor = c
		}
	}

	if v, ok := get("display"); ok {
		switch v {
		case "flex", "block", "none", "inline", "inline-flex", "contents":
			s.display = v
		default:
			return s, fmt.Errorf("%w: display %q", ErrUnsupported, v)
		}
	}
	if s.display == "block" {
		s.direction = "column"
	}
	if v, ok := get("flexDirection"); ok {
		s.direction = strings.TrimSuffix(v, "-reverse")
	}
	if v, ok := get("flexWrap"); ok {
		s.wrap = v == "wrap" || v == "wrap-reverse"
	}
	if v, ok := get("justifyContent"); ok {
		s.justify = v
	}
	if v, ok := get("alignItems"); ok {
		s.alignItems = v
	}
	if v, ok := get("alignSelf"); ok && v != "auto" {
		s.alignSelf = v
	}
	if v, ok := get("flex"); ok {
		applyFlexShorthand(&s, v, em)
	}
	if v, ok := get("flexGrow"); ok {
		s.grow, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := get("flexShrink"); ok {
		s.shrink, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := get("flexBasis"); ok {
		s.basis, _ = parseLength(v, em)
	}

	lengths := map[string]*length{
		"width": &s.width, "height": &s.height,
		"minWidth": &s.minW, "minHeight": &s.minH,
		"maxWidth": &s.maxW, "maxHeight": &s.maxH,
		"top": &s.top, "right": &s.right, "bottom": &s.bottom, "left": &s.left,
	}
	for k, dst := range lengths {
		if v, ok := get(k); ok {
			*dst, _ = parseLength(v, em)
		}
	}
	if err := applyEdges(&s.padding, "padding", get, em); err != nil {
		return s, err
	}
	if err := applyEdges(&s.margin, "margin", get, em); err != nil {
		return s, err
	}

	if v, ok := get("gap"); ok {
		parts := strings.Fields(v)
		if l, ok := parseLength(parts[0], em); ok {
			s.rowGap, s.columnGap = l.v, l.v
		}
		if len(parts) > 1 {
			if l, ok := parseLength(parts[1], em); ok {
				s.columnGap = l.v
			}
		}
	}
	if v, ok := get("rowGap"); ok {
		if l, ok := parseLength(v, em); ok {
			s.rowGap = l.v
		}
	}
	if v, ok := get("columnGap"); ok {
		if l, ok := parseLength(v, em); ok {
			s.columnGap = l.v
		}
	}

	if v, ok := get("position"); ok {
		switch v {
		case "absolute", "relative", "static":
			s.position = v
		default:
			return s, fmt.Errorf("%w: position %q", ErrUnsupported, v)
		}
	}

	for _, k := range []string{"background", "backgroundColor", "backgroundImage"} {
		v, ok := get(k)
		if !ok {
			continue
		}
		if strings.Contains(v, "url(") || strings.Contains(v, "gradient(") {
			s.backgroundImage = v
			continue
		}
		if c, ok := parseColor(v, s.color); ok {
			s.background = c
		} else if c, ok := parseColor(strings.Fields(v)[0], s.color); ok {
			s.background = c
		}
	}
	if v, ok := get("backgroundSize"); ok {
		s.backgroundSize = v
	}

	if v, ok := get("border"); ok {
		applyBorder(&s, v, em)
	}
	if v, ok := get("borderWidth"); ok {
		if l, ok := parseLength(v, em); ok {
			s.borderWidth = l.v
		}
	}
	if v, ok := get("borderColor"); ok {
		if c, ok := parseColor(v, s.color); ok {
			s.borderColor = c
		}
	}
	if v, ok := get("borderRadius"); ok {
		if l, ok := parseLength(strings.Fields(v)[0], em); ok && !l.pct {
			s.borderRadius = l.v
		}
	}
	if v, ok := get("opacity"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.opacity = clamp01(f)
		}
	}
	if v, ok := get("objectFit"); ok {
		s.objectFit = v
	}

	if v, ok := get("fontWeight"); ok {
		s.fontWeight = parseWeight(v, parent.fontWeight)
	}
	if v, ok := get("fontFamily"); ok {
		s.fontFamily = v
	}
	if v, ok := get("fontStyle"); ok {
		s.italic = v == "italic" || v == "oblique"
	}
	if v, ok := get("lineHeight"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.lineHeight = f
		} else if l, ok := parseLength(v, em); ok && s.fontSize > 0 {
			if l.pct {
				s.lineHeight = l.v / 100
			} else {
				s.lineHeight = l.v / s.fontSize
			}
		}
	}
	if v, ok := get("textAlign"); ok {
		s.textAlign = v
	}
	if v, ok := get("textTransform"); ok {
		s.textTransform = v
	}
	return s, nil
}

func applyFlexShorthand(s *style, v string, em float64) {
	switch v {
	case "none":
		s.grow, s.shrink = 0, 0
		return
	case "auto":
		s.grow, s.shrink = 1, 1
		return
	}
	parts := strings.Fields(v)
	if f, err := strconv.ParseFloat(parts[0], 64); err == nil {
		s.grow = f
		s.basis = length{v: 0, set: true}
	}
	if len(parts) > 1 {
		if f, err := strconv.ParseFloat(parts[1], 64); err == nil {
			s.shrink = f
		}
	}
	if len(parts) > 2 {
		s.basis, _ = parseLength(parts[2], em)
	}
}

func applyEdges(e *edges, prop string, get func(string) (string, bool), em float64) error {
	if v, ok := get(prop); ok {
		parts := strings.Fields(v)
		ls := make([]length, 0, 4)
		for _, p := range parts {
			l, ok := parseLength(p, em)
			if !ok {
				return fmt.Errorf("%w: %s %q", ErrUnsupported, prop, v)
			}
			ls = append(ls, l)
		}
		switch len(ls) {
		case 1:
			*e = edges{ls[0], ls[0], ls[0], ls[0]}
		case 2:
			*e = edges{ls[0], ls[1], ls[0], ls[1]}
		case 3:
			*e = edges{ls[0], ls[1], ls[2], ls[1]}
		case 4:
			*e = edges{ls[0], ls[1], ls[2], ls[3]}
		}
	}
	for i, side := range []string{"Top", "Right", "Bottom", "Left"} {
		if v, ok := get(prop + side); ok {
			if l, ok := parseLength(v, em); ok {
				e[i] = l
			}
		}
	}
	for _, axis := range []struct {
		suffix string
		idx    [2]int
	}{{"Horizontal", [2]int{1, 3}}, {"Vertical", [2]int{0, 2}}} {
		if v, ok := get(prop + axis.suffix); ok {
			if l, ok := parseLength(v, em); ok {
				e[axis.idx[0]], e[axis.idx[1]] = l, l
			}
		}
	}
	return nil
}

func applyBorder(s *style, v string, em float64) {
	for _, part := range splitTop(v, ' ') {
		if l, ok := parseLength(part, em); ok && !l.auto {
			s.borderWidth = l.v
			continue
		}
		if c, ok := parseColor(part, s.color); ok {
			s.borderColor = c
		}
	}
	if s.borderWidth == 0 && strings.TrimSpace(v) != "none" && strings.TrimSpace(v) != "0" {
		s.borderWidth = 1
	}
}

// parseLength reads px, %, em, rem, unitless numbers and auto.
func parseLength(v string, em float64) (length, bool) {
	v = strings.TrimSpace(v)
	switch {
	case v == "auto":
		return length{auto: true, set: true}, true
	case strings.HasSuffix(v, "%"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		return length{v: f, pct: true, set: true}, err == nil
	case strings.HasSuffix(v, "rem"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "rem"), 64)
		return length{v: f * 16, set: true}, err == nil
	case strings.HasSuffix(v, "em"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "em"), 64)
		return length{v: f * em, set: true}, err == nil
	case strings.HasSuffix(v, "px"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
		return length{v: f, set: true}, err == nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return length{}, false
	}
	return length{v: f, set: true}, true
}

func parseWeight(v string, inherited int) int {
	switch v {
	case "normal":
		return 400
	case "bold":
		return 700
	case "bolder":
		return min(inherited+300, 900)
	case "lighter":
		return max(inherited-300, 100)
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return inherited
}
