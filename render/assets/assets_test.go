package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
)

const transparentGIF = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestEmoji(t *testing.T) {
	got := Emoji("Hi 👋 there 👋🏽 and ❤️ plus → and 🇺🇸 again 👋")
	want := []string{"👋", "👋🏽", "❤️", "🇺🇸"}
	if len(got) != len(want) {
		t.Fatalf("Emoji = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Emoji[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsEmoji(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a", false},
		{"→", false},
		{"↔️", true},
		{"1️⃣", true},
		{"⭐", true},
		{"👨‍👩‍👧", true},
	}
	for _, tt := range tests {
		if got := IsEmoji(tt.in); got != tt.want {
			t.Errorf("IsEmoji(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCodePoints(t *testing.T) {
	if got := CodePoints("❤️"); got != "2764-fe0f" {
		t.Errorf("CodePoints = %q", got)
	}
	if got := CodePoints("👋🏽"); got != "1f44b-1f3fd" {
		t.Errorf("CodePoints = %q", got)
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, err := DecodeDataURI(transparentGIF)
	if err != nil {
		t.Fatal(err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 1 {
		t.Errorf("bounds = %v", img.Bounds())
	}

	plain, err := DecodeDataURI("data:text/plain,a%20b")
	if err != nil || string(plain) != "a b" {
		t.Errorf("plain = %q, %v", plain, err)
	}
	if _, err := DecodeDataURI("data:nocomma"); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestFetcher_CachesAndRejectsSchemes(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewFetcher()
	for i := 0; i < 3; i++ {
		b, err := f.Fetch(context.Background(), srv.URL+"/a")
		if err != nil || string(b) != "payload" {
			t.Fatalf("Fetch = %q, %v", b, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
	if _, err := f.Fetch(context.Background(), "file:///etc/passwd"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("err = %v, want ErrUnsupportedScheme", err)
	}
}

func TestFetcher_EmojiRetriesWithoutSelector(t *testing.T) {
	glyph := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2764.png" {
			_, _ = w.Write(glyph)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(WithEmojiBaseURL(srv.URL))
	got := f.Emoji(context.Background(), []string{"❤️", "🦄"})
	if _, ok := got["❤️"]; !ok {
		t.Error("heart glyph missing")
	}
	if _, ok := got["🦄"]; ok {
		t.Error("unicorn glyph must be skipped")
	}
}

func TestFetcher_ImagesSkipsFailures(t *testing.T) {
	good := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "good.png") {
			_, _ = w.Write(good)
			return
		}
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	f := NewFetcher()
	got := f.Images(context.Background(), []string{srv.URL + "/good.png", srv.URL + "/bad.png", transparentGIF})
	if len(got) != 2 {
		t.Fatalf("images = %d, want 2", len(got))
	}
	if _, ok := got[srv.URL+"/bad.png"]; ok {
		t.Error("undecodable image must be skipped")
	}
}

func TestFontSet(t *testing.T) {
	set, err := NewFontSet()
	if err != nil {
		t.Fatal(err)
	}
	regular, err := set.Face("'Unknown', sans-serif", 400, false, 20)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := set.Face("Unknown", 400, false, 20)
	if regular != again {
		t.Error("faces must be cached per family, weight and size")
	}
	bold, _ := set.Face("Inter", 650, false, 20)
	if bold == regular {
		t.Error("weight 650 must resolve to the bold face")
	}
	if m := regular.Metrics(); m.Ascent <= 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestFetcher_LoadFonts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/brand.ttf" {
			_, _ = w.Write(gobold.TTF)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	set, _ := NewFontSet()
	NewFetcher().LoadFonts(context.Background(), set, []FontSpec{
		{Name: "Brand", URL: srv.URL + "/brand.ttf", Weight: 700},
		{Name: "Missing", URL: srv.URL + "/missing.ttf"},
		{Name: "", URL: srv.URL + "/brand.ttf"},
	})
	if !set.Has("brand") {
		t.Error("Brand not loaded")
	}
	if set.Has("Missing") {
		t.Error("Missing must be skipped")
	}
}
