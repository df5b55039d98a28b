package scene

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"strings"
)

// EncodeSVG writes the scene as an SVG document. Raster images without an
// Href are embedded as PNG data URIs.
func (s *Scene) EncodeSVG(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		s.Width, s.Height, s.Width, s.Height)
	for i, sh := range s.Shapes {
		var err error
		switch v := sh.(type) {
		case *Rect:
			writeRect(bw, v)
		case *Text:
			err = writeText(bw, v)
		case *Image:
			err = writeImage(bw, v, i)
		case *Path:
			writePath(bw, v)
		}
		if err != nil {
			return err
		}
	}
	bw.WriteString("</svg>")
	return bw.Flush()
}

func writeRect(w *bufio.Writer, r *Rect) {
	fmt.Fprintf(w, `<rect x="%s" y="%s" width="%s" height="%s"`, num(r.X), num(r.Y), num(r.W), num(r.H))
	if r.Radius > 0 {
		fmt.Fprintf(w, ` rx="%s"`, num(r.Radius))
	}
	fmt.Fprintf(w, ` fill="%s"`, rgba(r.Fill))
	if r.StrokeWidth > 0 && r.Stroke.A > 0 {
		fmt.Fprintf(w, ` stroke="%s" stroke-width="%s"`, rgba(r.Stroke), num(r.StrokeWidth))
	}
	w.WriteString("/>")
}

func writeText(w *bufio.Writer, t *Text) error {
	family := t.Family
	if family == "" {
		family = "sans-serif"
	}
	fmt.Fprintf(w, `<text x="%s" y="%s" font-family="%s" font-size="%s" font-weight="%d" fill="%s">`,
		num(t.X), num(t.Y), attr(family), num(t.Size), t.Weight, rgba(t.Color))
	if err := xml.EscapeText(w, []byte(t.Text)); err != nil {
		return err
	}
	w.WriteString("</text>")
	return nil
}

func writeImage(w *bufio.Writer, im *Image, idx int) error {
	href := im.Href
	if im.Src != nil && (href == "" || !strings.HasPrefix(href, "data:")) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, im.Src); err != nil {
			return fmt.Errorf("scene: encode image %d: %w", idx, err)
		}
		href = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	}
	if href == "" {
		return nil
	}
	fmt.Fprintf(w, `<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" href="%s"/>`,
		num(im.X), num(im.Y), num(im.W), num(im.H), attr(href))
	return nil
}

func writePath(w *bufio.Writer, p *Path) {
	tag := "polyline"
	if p.Closed {
		tag = "polygon"
	}
	for _, line := range p.Lines {
		pts := make([]string, len(line))
		for i, pt := range line {
			pts[i] = num(pt.X) + "," + num(pt.Y)
		}
		fmt.Fprintf(w, `<%s points="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round"/>`,
			tag, strings.Join(pts, " "), rgba(p.Stroke), num(p.Width))
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func attr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// rgba un-premultiplies c for CSS.
func rgba(c color.RGBA) string {
	if c.A == 0 {
		return "none"
	}
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	a := float64(c.A)
	return fmt.Sprintf("rgba(%d,%d,%d,%s)",
		int(float64(c.R)*255/a+0.5), int(float64(c.G)*255/a+0.5), int(float64(c.B)*255/a+0.5),
		strconv.FormatFloat(a/255, 'f', 3, 64))
}
