package layout

import (
	"fmt"
	"image"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"

	"github.com/jonwraymond/pinog/render/assets"
)

// segment is a run of text or a single emoji glyph within a line.
type segment struct {
	text  string
	emoji image.Image
	x, w  float64
}

type line struct {
	segs  []segment
	width float64
}

func (l *line) add(s segment) {
	if n := len(l.segs); n > 0 && s.emoji == nil && l.segs[n-1].emoji == nil {
		l.segs[n-1].text += s.text
		l.segs[n-1].w += s.w
		l.width += s.w
		return
	}
	s.x = l.width
	l.segs = append(l.segs, s)
	l.width += s.w
}

type typesetter struct {
	fonts *assets.FontSet
	emoji map[string]image.Image
	err   error
}

func (t *typesetter) face(st style) font.Face {
	f, err := t.fonts.Face(st.fontFamily, st.fontWeight, st.italic, st.fontSize)
	if err != nil {
		if t.err == nil {
			t.err = fmt.Errorf("%w: %w", ErrTypeset, err)
		}
		return nil
	}
	return f
}

func (t *typesetter) metrics(st style) (ascent, descent float64) {
	face := t.face(st)
	if face == nil {
		return st.fontSize * 0.8, st.fontSize * 0.2
	}
	m := face.Metrics()
	return float64(m.Ascent) / 64, float64(m.Descent) / 64
}

// wrap breaks text into lines no wider than maxW. A negative maxW never
// wraps. Words longer than a line are broken between grapheme clusters.
func (t *typesetter) wrap(text string, st style, maxW float64) []line {
	face := t.face(st)
	if face == nil {
		return nil
	}
	measure := func(s string) float64 { return float64(font.MeasureString(face, s)) / 64 }
	space := measure(" ")

	var lines []line
	var cur line
	flush := func() {
		lines = append(lines, cur)
		cur = line{}
	}
	for _, word := range strings.Fields(transform(text, st.textTransform)) {
		pieces := t.pieces(word, st, measure)
		var ww float64
		for _, p := range pieces {
			ww += p.w
		}
		if maxW >= 0 && len(cur.segs) > 0 && cur.width+space+ww > maxW {
			flush()
		}
		if maxW >= 0 && ww > maxW {
			if len(cur.segs) > 0 {
				flush()
			}
			for _, c := range assets.Clusters(word) {
				for _, p := range t.pieces(c, st, measure) {
					if len(cur.segs) > 0 && cur.width+p.w > maxW {
						flush()
					}
					cur.add(p)
				}
			}
			continue
		}
		if len(cur.segs) > 0 {
			cur.add(segment{text: " ", w: space})
		}
		for _, p := range pieces {
			cur.add(p)
		}
	}
	if len(cur.segs) > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

// pieces splits a word into text runs and emoji glyphs.
func (t *typesetter) pieces(word string, st style, measure func(string) float64) []segment {
	var out []segment
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			s := run.String()
			out = append(out, segment{text: s, w: measure(s)})
			run.Reset()
		}
	}
	for _, c := range assets.Clusters(word) {
		if img, ok := t.emoji[c]; ok && assets.IsEmoji(c) {
			flush()
			out = append(out, segment{text: c, emoji: img, w: st.fontSize})
			continue
		}
		run.WriteString(c)
	}
	flush()
	return out
}

func widest(lines []line) float64 {
	var w float64
	for _, l := range lines {
		w = max(w, l.width)
	}
	return w
}

func transform(s, mode string) string {
	switch mode {
	case "uppercase":
		return strings.ToUpper(s)
	case "lowercase":
		return strings.ToLower(s)
	case "capitalize":
		words := strings.Fields(s)
		for i, w := range words {
			r, n := utf8.DecodeRuneInString(w)
			words[i] = string(unicode.ToUpper(r)) + w[n:]
		}
		return strings.Join(words, " ")
	}
	return s
}
