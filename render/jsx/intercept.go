package jsx

import (
	"regexp"
	"strings"
)

const (
	// FallbackPhotoURL replaces source.unsplash.com, which no longer serves
	// random photos.
	FallbackPhotoURL = "https://images.unsplash.com/photo-1472214103451-9374bd1c798e?ixlib=rb-4.0.3&auto=format&fit=crop&w=1200&q=80"

	// TransparentPixel is a 1x1 transparent GIF.
	TransparentPixel = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

	unsplashHost = "source.unsplash.com"
)

var cssURL = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// intercept rewrites the style and attributes of a host element in place.
func intercept(tag string, style map[string]any, attrs map[string]string, baseURL string) map[string]any {
	if tag == "div" {
		if style == nil {
			style = map[string]any{}
		}
		if d, _ := style["display"].(string); d == "" {
			style["display"] = "flex"
		}
	}
	for _, key := range []string{"backgroundImage", "background"} {
		bg, ok := style[key].(string)
		if !ok {
			continue
		}
		if strings.Contains(bg, unsplashHost) {
			style[key] = "url('" + FallbackPhotoURL + "')"
			continue
		}
		if m := cssURL.FindStringSubmatch(bg); m != nil && strings.HasPrefix(m[1], "/") && !strings.HasPrefix(m[1], "//") {
			style[key] = strings.Replace(bg, m[0], "url('"+baseURL+m[1]+"')", 1)
		}
	}
	if tag == "img" {
		src := attrs["src"]
		switch {
		case src == "":
			attrs["src"] = TransparentPixel
		case strings.Contains(src, unsplashHost):
			attrs["src"] = FallbackPhotoURL
		case strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//"):
			attrs["src"] = baseURL + src
		}
	}
	return style
}

// BackgroundURL extracts the first url(...) of a CSS background value.
func BackgroundURL(v string) (string, bool) {
	m := cssURL.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}
	return m[1], true
}
