package assets

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/resilience"
)

// MaxAssetSize bounds one fetched asset.
const MaxAssetSize = 8 << 20

// Fetcher retrieves asset bytes by URL.
type Fetcher struct {
	client   *http.Client
	docs     *cache.ReadThrough
	exec     *resilience.Executor
	logger   observe.Logger
	emojiURL string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger used for skipped assets.
func WithLogger(l observe.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithEmojiBaseURL overrides where emoji glyphs are fetched from.
func WithEmojiBaseURL(u string) FetcherOption {
	return func(f *Fetcher) { f.emojiURL = strings.TrimSuffix(u, "/") + "/" }
}

// NewFetcher creates a Fetcher. Each attempt is bounded to 5s and retried
// once on transient failures.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	docs, _ := cache.NewReadThrough(cache.NewMemoryCache(cache.MemoryConfig{Capacity: 256}), 0)
	f := &Fetcher{
		client: &http.Client{},
		docs:   docs,
		exec: resilience.NewExecutor(
			resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
				MaxAttempts:  2,
				InitialDelay: 100 * time.Millisecond,
			})),
			resilience.WithTimeout(5*time.Second),
		),
		logger:   observe.NopLogger(),
		emojiURL: TwemojiBaseURL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the bytes behind rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return DecodeDataURI(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}

	sum := sha256.Sum256([]byte(rawURL))
	return f.docs.Get(ctx, "asset:"+hex.EncodeToString(sum[:]), func(ctx context.Context) ([]byte, error) {
		var body []byte
		err := f.exec.Execute(ctx, func(ctx context.Context) error {
			var err error
			body, err = f.get(ctx, rawURL)
			return err
		})
		return body, err
	})
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %s: status %d", ErrFetch, rawURL, resp.StatusCode)
		if resp.StatusCode < 500 {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if len(body) > MaxAssetSize {
		return nil, resilience.Permanent(ErrTooLarge)
	}
	return body, nil
}

// DecodeDataURI decodes a data: URI payload.
func DecodeDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data uri", ErrDecode)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: data uri without payload", ErrDecode)
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return []byte(s), nil
}
