package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// DecodeImage decodes PNG, JPEG, GIF or WebP bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Image fetches and decodes one image.
func (f *Fetcher) Image(ctx context.Context, rawURL string) (image.Image, error) {
	data, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// Images loads urls concurrently. Failures are logged and left out of the
// result, so a broken image never fails a render.
func (f *Fetcher) Images(ctx context.Context, urls []string) map[string]image.Image {
	out := make(map[string]image.Image, len(urls))
	results := make([]image.Image, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, u := range urls {
		g.Go(func() error {
			img, err := f.Image(gctx, u)
			if err != nil {
				f.logger.Warn(gctx, "image skipped", observeURL(u), errField(err))
				return nil
			}
			results[i] = img
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range urls {
		if results[i] != nil {
			out[u] = results[i]
		}
	}
	return out
}
