package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/render/assets"
	"github.com/jonwraymond/pinog/render/jsx"
	"github.com/jonwraymond/pinog/render/layout"
	"github.com/jonwraymond/pinog/render/scene"
)

// Format selects the output encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// Default canvas size.
const (
	DefaultWidth  = 1200
	DefaultHeight = 800
)

// Input is the message a worker reads.
type Input struct {
	UICode  string         `json:"uiCode"`
	Props   map[string]any `json:"props"`
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	BaseURL string         `json:"baseUrl"`
	Format  Format         `json:"format,omitempty"`
}

// Pipeline renders UI code to images.
type Pipeline struct {
	fetcher     *assets.Fetcher
	logger      observe.Logger
	evalTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetcher sets the asset fetcher.
func WithFetcher(f *assets.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithEvalTimeout bounds UI code evaluation.
func WithEvalTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.evalTimeout = d }
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = assets.NewFetcher(assets.WithLogger(p.logger))
	}
	return p
}

// Render writes the encoded image for in to w.
func (p *Pipeline) Render(ctx context.Context, in Input, w io.Writer) error {
	if in.Width <= 0 {
		in.Width = DefaultWidth
	}
	if in.Height <= 0 {
		in.Height = DefaultHeight
	}
	if in.Props == nil {
		in.Props = map[string]any{}
	}

	mod, err := jsx.Render(ctx, in.UICode, in.Props, jsx.Options{BaseURL: in.BaseURL, Timeout: p.evalTimeout})
	if err != nil {
		return err
	}

	sc, err := p.layout(ctx, mod, in)
	if err != nil {
		p.logger.Warn(ctx, "layout failed, rendering fallback", observe.Err(err))
		sc = Fallback(in.Width, in.Height, err.Error())
	}
	return Encode(sc, in.Format, w)
}

func (p *Pipeline) layout(ctx context.Context, mod *jsx.Module, in Input) (*scene.Scene, error) {
	fonts, err := assets.NewFontSet()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", layout.ErrTypeset, err)
	}
	if len(mod.Config.Fonts) > 0 {
		p.fetcher.LoadFonts(ctx, fonts, mod.Config.Fonts)
	}
	emoji := p.fetcher.Emoji(ctx, assets.Emoji(mod.Root.TextContent()))
	images := p.fetcher.Images(ctx, ImageURLs(mod.Root))

	return layout.Layout(mod.Root, layout.Options{
		Width:  in.Width,
		Height: in.Height,
		Fonts:  fonts,
		Images: images,
		Emoji:  emoji,
	})
}

// ImageURLs lists the distinct img sources and background image URLs
// below root.
func ImageURLs(root *jsx.Node) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	root.Walk(func(n *jsx.Node) {
		if n.Tag == "img" {
			add(n.Attrs["src"])
		}
		for _, key := range []string{"backgroundImage", "background"} {
			if v, ok := n.Style[key].(string); ok {
				if u, ok := jsx.BackgroundURL(v); ok {
					add(u)
				}
			}
		}
	})
	return urls
}

// Fallback is the scene shown when a module cannot be laid out: a red
// canvas with a heading and the error message.
func Fallback(width, height int, msg string) *scene.Scene {
	root := &jsx.Node{
		Tag: "div",
		Style: map[string]any{
			"display":         "flex",
			"flexDirection":   "column",
			"alignItems":      "center",
			"justifyContent":  "center",
			"width":           "100%",
			"height":          "100%",
			"padding":         40.0,
			"backgroundColor": "#ff0000",
			"color":           "#ffffff",
			"textAlign":       "center",
		},
		Children: []*jsx.Node{
			{Tag: "div", Style: map[string]any{"fontSize": 40.0, "fontWeight": 700.0, "marginBottom": 20.0},
				Children: []*jsx.Node{{Text: "Render Failed"}}},
			{Tag: "div", Style: map[string]any{"fontSize": 20.0},
				Children: []*jsx.Node{{Text: msg}}},
		},
	}
	sc, err := layout.Layout(root, layout.Options{Width: width, Height: height})
	if err != nil {
		sc = scene.New(width, height)
		sc.Add(&scene.Rect{W: float64(width), H: float64(height), Fill: color.RGBA{R: 0xff, A: 0xff}})
	}
	return sc
}

// Encode writes sc in the requested format. Empty means PNG.
func Encode(sc *scene.Scene, format Format, w io.Writer) error {
	switch format {
	case "", FormatPNG:
		return sc.EncodePNG(w)
	case FormatSVG:
		return sc.EncodeSVG(w)
	}
	return fmt.Errorf("%w: %q", ErrFormat, format)
}

// Serve reads one Input from r and writes the image to w. Nothing is
// written to w on failure.
func (p *Pipeline) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
	var buf bytes.Buffer
	if err := p.Render(ctx, in, &buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
