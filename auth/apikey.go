package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
)

// APIKeyHeader carries the preview API key.
const APIKeyHeader = "X-API-Key"

// APIKeyStore looks up API keys by SHA-256 hash.
type APIKeyStore interface {
	// Lookup returns the principal for keyHash, or "" when unknown.
	Lookup(ctx context.Context, keyHash string) (string, error)
}

// APIKeyAuthenticator validates the X-API-Key header.
type APIKeyAuthenticator struct {
	store APIKeyStore
}

// NewAPIKeyAuthenticator creates an API key authenticator.
func NewAPIKeyAuthenticator(store APIKeyStore) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Supports reports whether an API key header is present.
func (a *APIKeyAuthenticator) Supports(_ context.Context, h http.Header) bool {
	return strings.TrimSpace(h.Get(APIKeyHeader)) != ""
}

// Authenticate validates the API key.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, h http.Header) (*AuthResult, error) {
	key := strings.TrimSpace(h.Get(APIKeyHeader))
	if key == "" {
		return AuthFailure(ErrMissingCredentials, AuthMethodAPIKey), nil
	}

	principal, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, err
	}
	if principal == "" {
		return AuthFailure(ErrInvalidCredentials, AuthMethodAPIKey), nil
	}
	return AuthSuccess(&Identity{
		Principal: principal,
		Method:    AuthMethodAPIKey,
		Claims:    map[string]any{},
	}), nil
}

// HashAPIKey hashes an API key for storage.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MemoryAPIKeyStore is an in-memory APIKeyStore.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]string // hash -> principal
}

// NewMemoryAPIKeyStore creates an empty store.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{keys: make(map[string]string)}
}

// Add registers a plaintext key for principal.
func (s *MemoryAPIKeyStore) Add(key, principal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[HashAPIKey(key)] = principal
}

// Lookup compares in constant time against every stored hash.
func (s *MemoryAPIKeyStore) Lookup(_ context.Context, keyHash string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found string
	for h, principal := range s.keys {
		if subtle.ConstantTimeCompare([]byte(h), []byte(keyHash)) == 1 {
			found = principal
		}
	}
	return found, nil
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
