package assets

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/pinog/observe"
)

// DefaultFamily is the family used when a requested one is not loaded.
const DefaultFamily = "Inter"

// FontSpec declares a custom font in a UI module's exported config.
type FontSpec struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Weight int    `json:"weight"`
	Style  string `json:"style"`
}

type fontEntry struct {
	weight int
	italic bool
	font   *opentype.Font
}

type faceKey struct {
	family string
	weight int
	italic bool
	size   float64
}

// FontSet resolves CSS-ish font requests to faces. It is not safe for
// concurrent use; each render owns one.
type FontSet struct {
	mu       sync.Mutex
	families map[string][]fontEntry
	faces    map[faceKey]font.Face
}

var builtin = sync.OnceValues(func() ([]fontEntry, error) {
	srcs := []struct {
		data   []byte
		weight int
		italic bool
	}{
		{goregular.TTF, 400, false},
		{gomedium.TTF, 500, false},
		{gobold.TTF, 700, false},
		{goitalic.TTF, 400, true},
	}
	out := make([]fontEntry, 0, len(srcs))
	for _, s := range srcs {
		f, err := opentype.Parse(s.data)
		if err != nil {
			return nil, err
		}
		out = append(out, fontEntry{weight: s.weight, italic: s.italic, font: f})
	}
	return out, nil
})

// NewFontSet returns a set holding the built-in faces under DefaultFamily.
func NewFontSet() (*FontSet, error) {
	entries, err := builtin()
	if err != nil {
		return nil, fmt.Errorf("%w: builtin fonts: %w", ErrDecode, err)
	}
	return &FontSet{
		families: map[string][]fontEntry{normalizeFamily(DefaultFamily): append([]fontEntry(nil), entries...)},
		faces:    make(map[faceKey]font.Face),
	}, nil
}

// Add registers TrueType or OpenType data under family.
func (s *FontSet) Add(family string, weight int, style string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: font %q: %w", ErrDecode, family, err)
	}
	if weight <= 0 {
		weight = 400
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeFamily(family)
	s.families[key] = append(s.families[key], fontEntry{weight: weight, italic: style == "italic", font: f})
	return nil
}

// Has reports whether family is loaded.
func (s *FontSet) Has(family string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.families[normalizeFamily(family)]
	return ok
}

// Face returns a face for the first loaded family in a CSS font-family
// list, falling back to DefaultFamily, with the closest weight.
func (s *FontSet) Face(families string, weight int, italic bool, size float64) (font.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	family := normalizeFamily(DefaultFamily)
	for _, name := range strings.Split(families, ",") {
		if n := normalizeFamily(name); n != "" {
			if _, ok := s.families[n]; ok {
				family = n
				break
			}
		}
	}
	key := faceKey{family: family, weight: weight, italic: italic, size: size}
	if f, ok := s.faces[key]; ok {
		return f, nil
	}

	entry := closest(s.families[family], weight, italic)
	face, err := opentype.NewFace(entry.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("%w: face: %w", ErrDecode, err)
	}
	s.faces[key] = face
	return face, nil
}

func closest(entries []fontEntry, weight int, italic bool) fontEntry {
	best, bestScore := entries[0], math.MaxInt
	for _, e := range entries {
		score := abs(e.weight - weight)
		if e.italic != italic {
			score += 1000
		}
		if score < bestScore {
			best, bestScore = e, score
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func normalizeFamily(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
}

// LoadFonts fetches specs into set. A font that fails to load is logged
// and skipped.
func (f *Fetcher) LoadFonts(ctx context.Context, set *FontSet, specs []FontSpec) {
	data := make([][]byte, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, spec := range specs {
		if spec.Name == "" || spec.URL == "" {
			continue
		}
		g.Go(func() error {
			b, err := f.Fetch(gctx, spec.URL)
			if err != nil {
				f.logger.Warn(gctx, "font fetch failed", observe.Field{Key: "font", Value: spec.Name}, observe.Err(err))
				return nil
			}
			data[i] = b
			return nil
		})
	}
	_ = g.Wait()

	for i, spec := range specs {
		if data[i] == nil {
			continue
		}
		if err := set.Add(spec.Name, spec.Weight, spec.Style, data[i]); err != nil {
			f.logger.Warn(ctx, "font skipped", observe.Field{Key: "font", Value: spec.Name}, observe.Err(err))
		}
	}
}
