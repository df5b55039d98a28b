package auth

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/cache"
)

// Bundle is a client-built customization payload.
type Bundle struct {
	// Version selects a content version; empty means latest.
	Version string
	// Params are the signed render parameters.
	Params map[string]any
	// Timestamp is the signing time in unix seconds; zero when absent.
	Timestamp int64
}

type wireBundle struct {
	Ver    any            `json:"ver"`
	Params map[string]any `json:"params"`
	TS     any            `json:"ts"`
}

// DecodeBundle parses the base64url JSON form of a bundle. Padding is
// optional and the standard alphabet is accepted too.
func DecodeBundle(encoded string) (*Bundle, error) {
	raw, err := decodeBase64(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBundle, err)
	}

	var w wireBundle
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBundle, err)
	}

	ver, err := scalarString(w.Ver)
	if err != nil {
		return nil, fmt.Errorf("%w: ver: %w", ErrMalformedBundle, err)
	}
	ts, err := scalarInt(w.TS)
	if err != nil {
		return nil, fmt.Errorf("%w: ts: %w", ErrMalformedBundle, err)
	}
	return &Bundle{Version: ver, Params: w.Params, Timestamp: ts}, nil
}

// Encode returns the canonical wire form, base64url without padding.
func (b *Bundle) Encode() (string, error) {
	w := wireBundle{Params: b.Params}
	if b.Version != "" {
		w.Ver = b.Version
	}
	if b.Timestamp != 0 {
		w.TS = b.Timestamp
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// ParamsHash returns the cache-key hash of Params, or "" when the bundle
// carries no params object.
func (b *Bundle) ParamsHash() (string, error) {
	if b.Params == nil {
		return "", nil
	}
	return cache.ParamsHash(b.Params)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unexpected %T", v)
	}
}

func scalarInt(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(val), nil
	case string:
		if val == "" {
			return 0, nil
		}
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}
