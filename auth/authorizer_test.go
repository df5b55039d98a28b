package auth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var testDomain = Domain{
	ChainID:           84532,
	VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
}

type fakeOwners struct {
	owners map[common.Address]bool
	err    error
}

func (f fakeOwners) IsOwner(_ context.Context, owner common.Address, _ *big.Int) (bool, error) {
	return f.owners[owner], f.err
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func sign(t *testing.T, key *ecdsa.PrivateKey, pinID uint64, b *Bundle) string {
	t.Helper()
	hash, err := SigningHash(testDomain, pinID, b)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatal(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func encode(t *testing.T, b *Bundle) string {
	t.Helper()
	s, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestAuthorizer(owners OwnershipChecker, now time.Time) *BundleAuthorizer {
	a := NewBundleAuthorizer(AuthorizerConfig{Domain: testDomain}, owners, nil)
	a.now = func() time.Time { return now }
	return a
}

func TestAuthorize_NoBundle(t *testing.T) {
	a := newTestAuthorizer(nil, time.Now())
	d := a.Authorize(context.Background(), Request{PinID: 3})
	if d.Authorized() || d.Rejected != nil {
		t.Fatalf("decision = %+v", d)
	}
	if d.CacheVersion() != "latest" || d.CacheTimestamp() != "" {
		t.Errorf("cache components = %q, %q", d.CacheVersion(), d.CacheTimestamp())
	}
}

func TestAuthorize_UnsignedIsAuthorized(t *testing.T) {
	a := newTestAuthorizer(nil, time.Now())
	b := &Bundle{Version: "2", Params: map[string]any{"count": "5"}}

	d := a.Authorize(context.Background(), Request{PinID: 3, Bundle: encode(t, b)})
	if !d.Authorized() {
		t.Fatalf("unsigned bundle rejected: %v", d.Rejected)
	}
	if d.CacheVersion() != "2" || d.ParamsHash == "" {
		t.Errorf("decision = %+v", d)
	}
	if d.Signer != (common.Address{}) {
		t.Errorf("unsigned bundle has signer %s", d.Signer)
	}
}

func TestAuthorize_RequireSignature(t *testing.T) {
	a := NewBundleAuthorizer(AuthorizerConfig{Domain: testDomain, RequireSignature: true}, nil, nil)
	d := a.Authorize(context.Background(), Request{PinID: 3, Bundle: encode(t, &Bundle{Version: "1"})})
	if d.Authorized() || !errors.Is(d.Rejected, ErrUnsignedBundle) {
		t.Fatalf("decision = %+v", d)
	}
}

func TestAuthorize_SignedWindow(t *testing.T) {
	key, owner := newKey(t)
	now := time.Unix(1_700_000_000, 0)
	owners := fakeOwners{owners: map[common.Address]bool{owner: true}}

	tests := []struct {
		name    string
		ts      int64
		wantErr error
	}{
		{"recent", now.Unix() - 10, nil},
		{"at max age", now.Unix() - 86400, nil},
		{"expired", now.Unix() - 86401, ErrTimestampExpired},
		{"small skew", now.Unix() + 600, nil},
		{"future", now.Unix() + 601, ErrTimestampInFuture},
		{"missing", 0, ErrMissingTimestamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuthorizer(owners, now)
			b := &Bundle{Version: "4", Params: map[string]any{"count": "5"}, Timestamp: tt.ts}
			d := a.Authorize(context.Background(), Request{PinID: 9, Bundle: encode(t, b), Signature: sign(t, key, 9, b)})

			if tt.wantErr == nil {
				if !d.Authorized() {
					t.Fatalf("rejected: %v", d.Rejected)
				}
				if d.Signer != owner {
					t.Errorf("signer = %s, want %s", d.Signer, owner)
				}
				return
			}
			if d.Authorized() || !errors.Is(d.Rejected, tt.wantErr) {
				t.Fatalf("decision = %+v, want %v", d, tt.wantErr)
			}
		})
	}
}

func TestAuthorize_NotOwner(t *testing.T) {
	key, _ := newKey(t)
	_, someoneElse := newKey(t)
	now := time.Now()
	a := newTestAuthorizer(fakeOwners{owners: map[common.Address]bool{someoneElse: true}}, now)

	b := &Bundle{Version: "1", Timestamp: now.Unix()}
	d := a.Authorize(context.Background(), Request{PinID: 9, Bundle: encode(t, b), Signature: sign(t, key, 9, b)})
	if !errors.Is(d.Rejected, ErrNotOwner) {
		t.Fatalf("Rejected = %v, want ErrNotOwner", d.Rejected)
	}
}

func TestAuthorize_OwnershipLookupFails(t *testing.T) {
	key, owner := newKey(t)
	now := time.Now()
	a := newTestAuthorizer(fakeOwners{owners: map[common.Address]bool{owner: true}, err: errors.New("rpc down")}, now)

	b := &Bundle{Timestamp: now.Unix()}
	d := a.Authorize(context.Background(), Request{PinID: 9, Bundle: encode(t, b), Signature: sign(t, key, 9, b)})
	if !errors.Is(d.Rejected, ErrNotOwner) {
		t.Fatalf("Rejected = %v, want ErrNotOwner", d.Rejected)
	}
}

func TestAuthorize_TamperedParams(t *testing.T) {
	key, owner := newKey(t)
	now := time.Now()
	a := newTestAuthorizer(fakeOwners{owners: map[common.Address]bool{owner: true}}, now)

	signed := &Bundle{Params: map[string]any{"count": "5"}, Timestamp: now.Unix()}
	sig := sign(t, key, 9, signed)
	tampered := &Bundle{Params: map[string]any{"count": "500"}, Timestamp: now.Unix()}

	d := a.Authorize(context.Background(), Request{PinID: 9, Bundle: encode(t, tampered), Signature: sig})
	if d.Authorized() {
		t.Fatal("tampered bundle authorized")
	}
}

func TestAuthorize_SignatureBoundToPin(t *testing.T) {
	key, owner := newKey(t)
	now := time.Now()
	a := newTestAuthorizer(fakeOwners{owners: map[common.Address]bool{owner: true}}, now)

	b := &Bundle{Timestamp: now.Unix()}
	d := a.Authorize(context.Background(), Request{PinID: 10, Bundle: encode(t, b), Signature: sign(t, key, 9, b)})
	if d.Authorized() {
		t.Fatal("signature for pin 9 accepted for pin 10")
	}
}

func TestAuthorize_PreviewPinSkipsOwnership(t *testing.T) {
	key, _ := newKey(t)
	now := time.Now()
	a := newTestAuthorizer(nil, now)

	b := &Bundle{Params: map[string]any{"count": "5"}, Timestamp: now.Unix()}
	d := a.Authorize(context.Background(), Request{PinID: 0, Bundle: encode(t, b), Signature: sign(t, key, 0, b)})
	if !d.Authorized() {
		t.Fatalf("rejected: %v", d.Rejected)
	}
	if d.CacheTimestamp() == "" {
		t.Error("signed timestamp missing from cache components")
	}
}

func TestAuthorize_MalformedInputs(t *testing.T) {
	a := newTestAuthorizer(nil, time.Now())
	ctx := context.Background()

	if d := a.Authorize(ctx, Request{PinID: 1, Bundle: "!!!"}); !errors.Is(d.Rejected, ErrMalformedBundle) {
		t.Errorf("bad base64: %v", d.Rejected)
	}

	b := &Bundle{Timestamp: time.Now().Unix()}
	for _, sig := range []string{"nothex", "0x1234"} {
		if d := a.Authorize(ctx, Request{PinID: 0, Bundle: encode(t, b), Signature: sig}); !errors.Is(d.Rejected, ErrInvalidSignature) {
			t.Errorf("sig %q: %v", sig, d.Rejected)
		}
	}
}

func TestRecoverSigner_AcceptsRawRecoveryID(t *testing.T) {
	key, owner := newKey(t)
	hash, _ := SigningHash(testDomain, 1, &Bundle{Timestamp: 1})
	sig, _ := crypto.Sign(hash, key)

	got, err := RecoverSigner(hash, hexutil.Encode(sig))
	if err != nil {
		t.Fatal(err)
	}
	if got != owner {
		t.Errorf("signer = %s, want %s", got, owner)
	}
}
