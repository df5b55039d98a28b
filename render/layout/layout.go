package layout

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/jonwraymond/pinog/render/assets"
	"github.com/jonwraymond/pinog/render/jsx"
	"github.com/jonwraymond/pinog/render/scene"
)

// Options configures a layout pass.
type Options struct {
	Width, Height int

	// Fonts resolves font families. Nil uses the builtin set.
	Fonts *assets.FontSet

	// Images maps img src and background URLs to decoded images. Missing
	// entries are left out of the raster output.
	Images map[string]image.Image

	// Emoji maps grapheme clusters to glyph images.
	Emoji map[string]image.Image
}

type kind int

const (
	kindElement kind = iota
	kindText
	kindImage
	kindIcon
)

type box struct {
	kind     kind
	st       style
	children []*box
	text     string
	src      string
	img      image.Image
	icon     string
	stroke   float64

	x, y, w, h float64

	eng     *engine
	prefW   map[float64]float64
	prefH   map[float64]float64
	wrapped map[float64][]line
}

type engine struct {
	opts Options
	ts   *typesetter
}

// Layout places root on a canvas of the configured size.
func Layout(root *jsx.Node, opts Options) (*scene.Scene, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("layout: invalid canvas %dx%d", opts.Width, opts.Height)
	}
	if opts.Fonts == nil {
		fonts, err := assets.NewFontSet()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTypeset, err)
		}
		opts.Fonts = fonts
	}
	e := &engine{opts: opts, ts: &typesetter{fonts: opts.Fonts, emoji: opts.Emoji}}

	canvasStyle := rootStyle().inherit()
	canvasStyle.direction = "column"
	canvas := e.newBox(kindElement, canvasStyle)
	canvas.w, canvas.h = float64(opts.Width), float64(opts.Height)

	if root != nil {
		children, err := e.build(root, rootStyle())
		if err != nil {
			return nil, err
		}
		canvas.children = children
	}
	canvas.place()
	if e.ts.err != nil {
		return nil, e.ts.err
	}

	sc := scene.New(opts.Width, opts.Height)
	if err := e.emit(sc, canvas, 1); err != nil {
		return nil, err
	}
	if e.ts.err != nil {
		return nil, e.ts.err
	}
	return sc, nil
}

func (e *engine) newBox(k kind, st style) *box {
	return &box{
		kind:    k,
		st:      st,
		eng:     e,
		prefW:   make(map[float64]float64),
		prefH:   make(map[float64]float64),
		wrapped: make(map[float64][]line),
	}
}

// build converts n into boxes. Text children of an element are merged and
// whitespace is collapsed. An element holding only text becomes a text box.
func (e *engine) build(n *jsx.Node, parent style) ([]*box, error) {
	if n.IsText() {
		text := collapse(n.Text)
		if text == "" {
			return nil, nil
		}
		b := e.newBox(kindText, parent.inherit())
		b.text = text
		return []*box{b}, nil
	}

	st, err := computeStyle(parent, n.Style)
	if err != nil {
		return nil, err
	}
	if st.display == "none" {
		return nil, nil
	}

	b := e.newBox(kindElement, st)
	switch n.Tag {
	case "img":
		b.kind = kindImage
		b.src = n.Attrs["src"]
		b.img = e.opts.Images[b.src]
		for attr, dst := range map[string]*length{"width": &b.st.width, "height": &b.st.height} {
			if dst.set {
				continue
			}
			if l, ok := parseLength(n.Attrs[attr], st.fontSize); ok {
				*dst = l
			}
		}
		return []*box{b}, nil
	case "icon":
		b.kind = kindIcon
		b.icon = n.Attrs["name"]
		b.stroke = 2
		if v, ok := n.Style["strokeWidth"]; ok {
			if f, err := strconv.ParseFloat(fmt.Sprint(v), 64); err == nil {
				b.stroke = f
			}
		}
		return []*box{b}, nil
	}

	allText := len(n.Children) > 0
	for _, c := range n.Children {
		if !c.IsText() {
			allText = false
			break
		}
	}
	if allText {
		var sb strings.Builder
		for _, c := range n.Children {
			sb.WriteString(c.Text)
		}
		if text := collapse(sb.String()); text != "" {
			b.kind = kindText
			b.text = text
		}
		return e.wrapContents(b)
	}

	var pending strings.Builder
	flush := func() error {
		if pending.Len() == 0 {
			return nil
		}
		kids, err := e.build(&jsx.Node{Text: pending.String()}, st)
		pending.Reset()
		b.children = append(b.children, kids...)
		return err
	}
	for _, c := range n.Children {
		if c.IsText() {
			pending.WriteString(c.Text)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		kids, err := e.build(c, st)
		if err != nil {
			return nil, err
		}
		b.children = append(b.children, kids...)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return e.wrapContents(b)
}

// wrapContents hoists the children of a display: contents box.
func (e *engine) wrapContents(b *box) ([]*box, error) {
	if b.st.display != "contents" {
		return []*box{b}, nil
	}
	if b.kind == kindText {
		t := e.newBox(kindText, b.st)
		t.text = b.text
		return []*box{t}, nil
	}
	return b.children, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
