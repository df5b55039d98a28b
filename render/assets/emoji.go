package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/pinog/observe"
)

// TwemojiBaseURL serves 72x72 PNG emoji glyphs named by code point.
const TwemojiBaseURL = "https://cdnjs.cloudflare.com/ajax/libs/twemoji/14.0.2/72x72/"

// IsEmoji reports whether a grapheme cluster renders as an emoji. Text
// symbols such as arrows count only with an emoji presentation selector.
func IsEmoji(cluster string) bool {
	if strings.ContainsRune(cluster, 0xFE0F) || strings.ContainsRune(cluster, 0x20E3) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(cluster)
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF,
		r >= 0x2600 && r <= 0x27BF,
		r >= 0x2B50 && r <= 0x2B55,
		r == 0x231A, r == 0x231B,
		r >= 0x23E9 && r <= 0x23FA:
		return true
	}
	return false
}

// Emoji returns the distinct emoji clusters in text, in order of first use.
func Emoji(text string) []string {
	var out []string
	seen := make(map[string]bool)
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		c := gr.Str()
		if !seen[c] && IsEmoji(c) {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Clusters splits text into grapheme clusters.
func Clusters(text string) []string {
	var out []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}

// CodePoints returns the lowercase hex code points of cluster joined by "-".
func CodePoints(cluster string) string {
	parts := make([]string, 0, 4)
	for _, r := range cluster {
		parts = append(parts, fmt.Sprintf("%x", r))
	}
	return strings.Join(parts, "-")
}

// Emoji loads glyph images for clusters. A glyph missing under its full
// code point sequence is retried without a trailing variation selector.
// Missing glyphs are left out.
func (f *Fetcher) Emoji(ctx context.Context, clusters []string) map[string]image.Image {
	results := make([]image.Image, len(clusters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, c := range clusters {
		g.Go(func() error {
			img, err := f.emoji(gctx, c)
			if err != nil {
				f.logger.Debug(gctx, "emoji glyph skipped", observe.Field{Key: "emoji", Value: CodePoints(c)}, errField(err))
				return nil
			}
			results[i] = img
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]image.Image, len(clusters))
	for i, c := range clusters {
		if results[i] != nil {
			out[c] = results[i]
		}
	}
	return out
}

func (f *Fetcher) emoji(ctx context.Context, cluster string) (image.Image, error) {
	hex := CodePoints(cluster)
	img, err := f.Image(ctx, f.emojiURL+hex+".png")
	if err == nil || !errors.Is(err, ErrFetch) {
		return img, err
	}
	if trimmed, ok := strings.CutSuffix(hex, "-fe0f"); ok {
		return f.Image(ctx, f.emojiURL+trimmed+".png")
	}
	return nil, err
}

func observeURL(u string) observe.Field {
	if len(u) > 128 {
		u = u[:128]
	}
	return observe.Field{Key: "url", Value: u}
}

func errField(err error) observe.Field { return observe.Err(err) }
