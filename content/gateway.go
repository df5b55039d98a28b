package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/resilience"
)

// MaxManifestSize bounds a fetched manifest.
const MaxManifestSize = 4 << 20

// Config configures a Gateway.
type Config struct {
	// URL is the gateway prefix the content identifier is appended to.
	// Default: https://gateway.pinata.cloud/ipfs/
	URL string `koanf:"gateway"`

	// Timeout bounds one fetch attempt.
	// Default: 10s
	Timeout time.Duration `koanf:"timeout"`
}

// Resolver fetches manifests.
type Resolver interface {
	Fetch(ctx context.Context, contentID string) (*Manifest, error)
}

// Gateway resolves manifests through an IPFS HTTP gateway.
type Gateway struct {
	url    string
	client *http.Client
	docs   *cache.ReadThrough
	exec   *resilience.Executor
	mw     *observe.Middleware
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithExecutor wraps every fetch in exec.
func WithExecutor(exec *resilience.Executor) Option {
	return func(g *Gateway) { g.exec = exec }
}

// WithMiddleware sets the telemetry middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(g *Gateway) { g.mw = mw }
}

// NewGateway creates a gateway resolver.
func NewGateway(cfg Config, opts ...Option) (*Gateway, error) {
	if cfg.URL == "" {
		cfg.URL = "https://gateway.pinata.cloud/ipfs/"
	}
	if !strings.HasSuffix(cfg.URL, "/") {
		cfg.URL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	// Content-addressed: entries never expire and are never evicted.
	docs, err := cache.NewReadThrough(cache.NewMemoryCache(cache.MemoryConfig{}), 0)
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		url:    cfg.URL,
		client: &http.Client{},
		docs:   docs,
		exec:   resilience.NewExecutor(resilience.WithTimeout(cfg.Timeout)),
		mw:     observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Fetch returns the manifest stored under contentID.
func (g *Gateway) Fetch(ctx context.Context, contentID string) (*Manifest, error) {
	id, err := ParseContentID(contentID)
	if err != nil {
		return nil, err
	}

	var m *Manifest
	err = g.mw.Run(ctx, observe.Operation{Component: "content", Name: "fetch"}, func(ctx context.Context) error {
		raw, err := g.docs.Get(ctx, "ipfs:"+id.String(), func(ctx context.Context) ([]byte, error) {
			return g.load(ctx, id)
		})
		if err != nil {
			return err
		}
		m, err = ParseManifest(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (g *Gateway) load(ctx context.Context, id cid.Cid) ([]byte, error) {
	var body []byte
	err := g.exec.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url+id.String(), nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return resilience.Permanent(fmt.Errorf("%w: %s", ErrNotFound, id))
		case resp.StatusCode >= 500:
			return fmt.Errorf("content: gateway status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return resilience.Permanent(fmt.Errorf("content: gateway status %d", resp.StatusCode))
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, MaxManifestSize+1))
		if err != nil {
			return err
		}
		if len(b) > MaxManifestSize {
			return resilience.Permanent(ErrTooLarge)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := Verify(id, body); err != nil {
		return nil, err
	}
	return body, nil
}

// ParseContentID decodes a CIDv0 or CIDv1 string.
func ParseContentID(s string) (cid.Cid, error) {
	id, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %q: %w", ErrInvalidContentID, s, err)
	}
	return id, nil
}

// Verify checks that data hashes to id. Only raw-codec identifiers address
// the bytes directly; for other codecs the gateway response is a decoded
// view and cannot be checked.
func Verify(id cid.Cid, data []byte) error {
	if id.Type() != cid.Raw {
		return nil
	}
	decoded, err := multihash.Decode(id.Hash())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	sum, err := multihash.Sum(data, decoded.Code, decoded.Length)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	if !bytes.Equal(sum, id.Hash()) {
		return fmt.Errorf("%w: %s", ErrIntegrity, id)
	}
	return nil
}

var _ Resolver = (*Gateway)(nil)
