package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"sort"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/sha3"
)

// CacheBustKey is the query key that forces synchronous regeneration. It is
// handed to generation but never contributes to the key.
const CacheBustKey = "t"

// ReservedQueryKeys are control keys that are not render overrides.
var ReservedQueryKeys = []string{"b", "sig", "ver", "ts", "tokenId", CacheBustKey}

const keyNamespace = "og:v2"

// KeyInput is everything a rendered card's identity depends on.
type KeyInput struct {
	PinID string
	// Version is the authorized content version, or "latest".
	Version string
	// ParamsHash is the signed bundle's params hash, empty without one.
	ParamsHash string
	// Overrides are the free-form query values.
	Overrides map[string]string
	// Timestamp is the signed bundle timestamp, empty without one.
	Timestamp string
}

// Key is a derived cache key and its companion coordination keys.
type Key struct {
	Cache string
	Lock  string
	Fresh string
}

// Keyer derives cache keys.
//
// Contract:
// - Determinism: equal inputs yield equal keys regardless of map order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(in KeyInput) (Key, error)
}

// DefaultKeyer hashes "og:v2:pin:ver:params:overrides:ts" with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives the cache, lock and freshness keys for in.
func (k *DefaultKeyer) Key(in KeyInput) (Key, error) {
	version := in.Version
	if version == "" {
		version = "latest"
	}

	var overridesHash string
	if len(in.Overrides) > 0 {
		h, err := ParamsHash(in.Overrides)
		if err != nil {
			return Key{}, fmt.Errorf("cache: hash overrides: %w", err)
		}
		overridesHash = h
	}

	raw := fmt.Sprintf("%s:%s:%s:%s:%s:%s", keyNamespace, in.PinID, version, in.ParamsHash, overridesHash, in.Timestamp)
	sum := sha256.Sum256([]byte(raw))
	return NewKey(hex.EncodeToString(sum[:])), nil
}

// NewKey builds the companion keys for an already derived cache key.
func NewKey(cacheKey string) Key {
	return Key{
		Cache: cacheKey,
		Lock:  "lock:" + cacheKey,
		Fresh: "fresh:" + cacheKey,
	}
}

// SplitQuery separates free-form overrides from reserved control keys and
// reports whether the cache-bust key was present. Multi-valued keys use
// their first value.
func SplitQuery(q url.Values) (overrides map[string]string, bust bool) {
	overrides = make(map[string]string)
	for key, values := range q {
		if key == CacheBustKey {
			bust = true
			continue
		}
		if slices.Contains(ReservedQueryKeys, key) || len(values) == 0 {
			continue
		}
		overrides[key] = values[0]
	}
	return overrides, bust
}

// ParamsHash returns the 0x-prefixed Keccak-256 of the canonical JSON form
// of params. Signed bundles commit to this value.
func ParamsHash(params any) (string, error) {
	canonical, err := CanonicalJSON(params)
	if err != nil {
		return "", err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(canonical)
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON produces a deterministic JSON encoding with object keys
// sorted at every level and no HTML escaping.
func CanonicalJSON(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case []any:
		return canonicalizeSlice(val)
	default:
		return marshalScalar(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := marshalScalar(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := CanonicalJSON(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := CanonicalJSON(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

// marshalScalar matches JSON.stringify: <, > and & stay literal.
func marshalScalar(v any) ([]byte, error) {
	return json.MarshalWithOption(v, json.DisableHTMLEscape())
}

var _ Keyer = (*DefaultKeyer)(nil)
