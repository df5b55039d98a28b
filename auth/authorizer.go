package auth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jonwraymond/pinog/observe"
)

// OwnershipChecker reports whether an address controls a Pin.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, owner common.Address, pinID *big.Int) (bool, error)
}

// AuthorizerConfig configures a BundleAuthorizer.
type AuthorizerConfig struct {
	Domain Domain

	// MaxAge bounds how old a signed timestamp may be.
	// Default: 24h
	MaxAge time.Duration

	// FutureSkew bounds how far ahead of local time a signed timestamp may be.
	// Default: 10m
	FutureSkew time.Duration

	// PreviewPinID skips the ownership check.
	PreviewPinID uint64

	// RequireSignature rejects unsigned bundles. Off by default: unsigned
	// customization is authorized.
	RequireSignature bool
}

// Request is the authorization input of a render request.
type Request struct {
	PinID     uint64
	Bundle    string
	Signature string
}

// Decision is the outcome of authorizing a request.
type Decision struct {
	// Bundle is the authorized bundle, nil when unauthorized or absent.
	Bundle *Bundle
	// Signer is the recovered owner; zero for unsigned bundles.
	Signer common.Address
	// ParamsHash is the cache-key hash of the authorized params.
	ParamsHash string
	// Rejected explains why a present bundle was not authorized.
	Rejected error
}

// Authorized reports whether a bundle was accepted.
func (d Decision) Authorized() bool { return d.Bundle != nil }

// CacheVersion is the version component of the cache key.
func (d Decision) CacheVersion() string {
	if d.Bundle == nil || d.Bundle.Version == "" {
		return "latest"
	}
	return d.Bundle.Version
}

// CacheTimestamp is the timestamp component of the cache key.
func (d Decision) CacheTimestamp() string {
	if d.Bundle == nil || d.Bundle.Timestamp == 0 {
		return ""
	}
	return strconv.FormatInt(d.Bundle.Timestamp, 10)
}

// Authorizer decides whether a request's bundle may customize the render.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) Decision
}

// BundleAuthorizer verifies typed-data signed bundles.
type BundleAuthorizer struct {
	cfg    AuthorizerConfig
	owners OwnershipChecker
	logger observe.Logger
	now    func() time.Time
}

// NewBundleAuthorizer creates an authorizer. owners may be nil only if every
// signed request targets the preview Pin.
func NewBundleAuthorizer(cfg AuthorizerConfig, owners OwnershipChecker, logger observe.Logger) *BundleAuthorizer {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.FutureSkew <= 0 {
		cfg.FutureSkew = 10 * time.Minute
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &BundleAuthorizer{cfg: cfg, owners: owners, logger: logger, now: time.Now}
}

// Authorize never fails the request: a rejected bundle yields a Decision
// with Rejected set and no Bundle.
func (a *BundleAuthorizer) Authorize(ctx context.Context, req Request) Decision {
	if req.Bundle == "" {
		return Decision{}
	}

	b, err := DecodeBundle(req.Bundle)
	if err != nil {
		return a.reject(ctx, req, err)
	}

	var signer common.Address
	if req.Signature == "" {
		if a.cfg.RequireSignature {
			return a.reject(ctx, req, ErrUnsignedBundle)
		}
	} else {
		signer, err = a.verify(ctx, req.PinID, b, req.Signature)
		if err != nil {
			return a.reject(ctx, req, err)
		}
	}

	paramsHash, err := b.ParamsHash()
	if err != nil {
		return a.reject(ctx, req, fmt.Errorf("%w: %w", ErrMalformedBundle, err))
	}

	a.logger.Debug(ctx, "bundle authorized",
		observe.Field{Key: "pin_id", Value: req.PinID},
		observe.Field{Key: "signed", Value: req.Signature != ""},
		observe.Field{Key: "signer", Value: signer.Hex()},
	)
	return Decision{Bundle: b, Signer: signer, ParamsHash: paramsHash}
}

func (a *BundleAuthorizer) verify(ctx context.Context, pinID uint64, b *Bundle, signature string) (common.Address, error) {
	if b.Timestamp == 0 {
		return common.Address{}, ErrMissingTimestamp
	}
	now := a.now().Unix()
	if now-b.Timestamp > int64(a.cfg.MaxAge/time.Second) {
		return common.Address{}, ErrTimestampExpired
	}
	if b.Timestamp-now > int64(a.cfg.FutureSkew/time.Second) {
		return common.Address{}, ErrTimestampInFuture
	}

	hash, err := SigningHash(a.cfg.Domain, pinID, b)
	if err != nil {
		return common.Address{}, err
	}
	signer, err := RecoverSigner(hash, signature)
	if err != nil {
		return common.Address{}, err
	}

	if pinID == a.cfg.PreviewPinID {
		return signer, nil
	}
	if a.owners == nil {
		return common.Address{}, fmt.Errorf("%w: no ownership source", ErrNotOwner)
	}
	ok, err := a.owners.IsOwner(ctx, signer, new(big.Int).SetUint64(pinID))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrNotOwner, err)
	}
	if !ok {
		return common.Address{}, ErrNotOwner
	}
	return signer, nil
}

func (a *BundleAuthorizer) reject(ctx context.Context, req Request, reason error) Decision {
	level := a.logger.Info
	if errors.Is(reason, ErrMalformedBundle) {
		level = a.logger.Debug
	}
	level(ctx, "bundle rejected, using defaults",
		observe.Field{Key: "pin_id", Value: req.PinID},
		observe.Err(reason),
	)
	return Decision{Rejected: reason}
}

var _ Authorizer = (*BundleAuthorizer)(nil)
