package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"
)

var red = color.RGBA{R: 0xff, A: 0xff}

func TestRasterize_Rect(t *testing.T) {
	s := New(20, 10)
	s.Add(&Rect{X: 0, Y: 0, W: 10, H: 10, Fill: red})

	img := s.Rasterize()
	if got := img.RGBAAt(5, 5); got != red {
		t.Errorf("inside = %v, want red", got)
	}
	if got := img.RGBAAt(15, 5); got.A != 0 {
		t.Errorf("outside = %v, want transparent", got)
	}
}

func TestRasterize_BorderLeavesInteriorEmpty(t *testing.T) {
	s := New(40, 40)
	s.Add(&Rect{X: 0, Y: 0, W: 40, H: 40, Stroke: red, StrokeWidth: 4})

	img := s.Rasterize()
	if got := img.RGBAAt(1, 20); got != red {
		t.Errorf("border = %v, want red", got)
	}
	if got := img.RGBAAt(20, 20); got.A != 0 {
		t.Errorf("interior = %v, want transparent", got)
	}
}

func TestRasterize_RoundedCornerIsClipped(t *testing.T) {
	s := New(40, 40)
	s.Add(&Rect{W: 40, H: 40, Radius: 20, Fill: red})

	img := s.Rasterize()
	if got := img.RGBAAt(0, 0); got.A != 0 {
		t.Errorf("corner = %v, want transparent", got)
	}
	if got := img.RGBAAt(20, 20); got != red {
		t.Errorf("center = %v, want red", got)
	}
}

func TestRasterize_ImageAndPath(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			src.SetRGBA(x, y, red)
		}
	}
	s := New(30, 30)
	s.Add(
		&Image{X: 0, Y: 0, W: 10, H: 10, Src: src},
		&Path{Lines: [][]Point{{{15, 15}, {29, 15}}}, Stroke: red, Width: 4},
	)
	img := s.Rasterize()
	if got := img.RGBAAt(5, 5); got != red {
		t.Errorf("image pixel = %v", got)
	}
	if got := img.RGBAAt(22, 15); got != red {
		t.Errorf("stroke pixel = %v", got)
	}
}

func TestRasterize_Text(t *testing.T) {
	s := New(100, 20)
	s.Add(&Text{X: 2, Y: 14, Text: "HELLO", Face: basicfont.Face7x13, Color: red})

	img := s.Rasterize()
	var painted int
	for x := 0; x < 100; x++ {
		for y := 0; y < 20; y++ {
			if img.RGBAAt(x, y).A > 0 {
				painted++
			}
		}
	}
	if painted == 0 {
		t.Fatal("no text pixels painted")
	}
}

func TestEncodePNG_Dimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := New(120, 80).EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 120 || cfg.Height != 80 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestEncodeSVG(t *testing.T) {
	s := New(50, 50)
	s.Add(
		&Rect{W: 50, H: 50, Radius: 4, Fill: color.RGBA{R: 0x80, A: 0x80}},
		&Text{X: 1, Y: 10, Text: "a<b", Size: 12, Weight: 700, Color: red},
		&Image{W: 10, H: 10, Href: "https://example.com/x.png"},
		&Path{Lines: [][]Point{{{0, 0}, {5, 5}}}, Stroke: red, Width: 2},
	)
	var buf bytes.Buffer
	if err := s.EncodeSVG(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" width="50" height="50"`,
		`rx="4"`,
		`fill="rgba(255,0,0,0.502)"`,
		`a&lt;b`,
		`font-weight="700"`,
		`href="https://example.com/x.png"`,
		`<polyline points="0,0 5,5"`,
		`</svg>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q\n%s", want, out)
		}
	}
}
