package render

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/jonwraymond/pinog/render/scene"
)

// Placeholder labels.
const (
	LabelNotFound    = "Not Found"
	LabelNoCode      = "No Code"
	LabelRenderError = "Render Error"
	LabelTimeout     = "Timeout"
	LabelError       = "Error"
)

const placeholderW, placeholderH = 600, 400

// stubPNG is a 1x1 PNG used if the labeled placeholder cannot be encoded.
var stubPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAACklEQVR4nGMAAQAABQABDQottAAAAABJRU5ErkJggg==")

var placeholders sync.Map // label -> []byte

// Placeholder returns a PNG with label centered on a neutral background.
func Placeholder(label string) []byte {
	if b, ok := placeholders.Load(label); ok {
		return b.([]byte)
	}
	sc := scene.New(placeholderW, placeholderH)
	sc.Add(&scene.Rect{W: placeholderW, H: placeholderH, Fill: color.RGBA{0x1f, 0x20, 0x24, 0xff}})

	face := basicfont.Face7x13
	width := float64(font.MeasureString(face, label)) / 64
	sc.Add(&scene.Text{
		X:     (placeholderW - width) / 2,
		Y:     placeholderH/2 + 4,
		Text:  label,
		Face:  face,
		Size:  13,
		Color: color.RGBA{0xe5, 0xe7, 0xeb, 0xff},
	})

	var buf bytes.Buffer
	if err := sc.EncodePNG(&buf); err != nil {
		return stubPNG
	}
	b, _ := placeholders.LoadOrStore(label, buf.Bytes())
	return b.([]byte)
}
