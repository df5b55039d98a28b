package chain

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/resilience"
)

// ContractCaller executes read-only contract calls. *ethclient.Client
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config configures a Reader.
type Config struct {
	RPCURL   string         `koanf:"rpc_url"`
	Registry common.Address `koanf:"-"`

	// MetadataTTL is how long resolved Pins are reused.
	// Default: 60s
	MetadataTTL time.Duration `koanf:"metadata_ttl"`

	// CallTimeout bounds each RPC call.
	// Default: 5s
	CallTimeout time.Duration `koanf:"call_timeout"`
}

// Pin is a resolved on-chain Pin.
type Pin struct {
	ID            uint64         `json:"id"`
	Store         common.Address `json:"store"`
	Title         string         `json:"title"`
	Tagline       string         `json:"tagline"`
	LatestVersion string         `json:"latestVersion"`
	// Version is the version ContentID belongs to.
	Version   string `json:"version"`
	ContentID string `json:"contentId"`
}

// Reader resolves Pins and ownership.
type Reader struct {
	caller   ContractCaller
	registry common.Address
	pins     *cache.ReadThrough
	exec     *resilience.Executor
	mw       *observe.Middleware
}

// Option configures a Reader.
type Option func(*Reader)

// WithExecutor wraps every RPC call in exec.
func WithExecutor(exec *resilience.Executor) Option {
	return func(r *Reader) { r.exec = exec }
}

// WithMiddleware sets the telemetry middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(r *Reader) { r.mw = mw }
}

// Dial connects to cfg.RPCURL.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Reader, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: dial rpc: %w", err)
	}
	r, err := NewReader(client, cfg, opts...)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return r, client, nil
}

// NewReader creates a Reader over caller.
func NewReader(caller ContractCaller, cfg Config, opts ...Option) (*Reader, error) {
	if cfg.Registry == (common.Address{}) {
		return nil, ErrNoRegistry
	}
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = 60 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}

	pins, err := cache.NewReadThrough(cache.NewMemoryCache(cache.MemoryConfig{Capacity: 1000, TTL: cfg.MetadataTTL}), 0)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		caller:   caller,
		registry: cfg.Registry,
		pins:     pins,
		exec:     resilience.NewExecutor(resilience.WithTimeout(cfg.CallTimeout)),
		mw:       observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ResolvePin returns the Pin's store, metadata and the content identifier of
// version, or of the latest version when version is nil. A store without
// published versions yields an empty ContentID.
func (r *Reader) ResolvePin(ctx context.Context, id uint64, version *big.Int) (*Pin, error) {
	key := "pin:" + strconv.FormatUint(id, 10) + ":latest"
	if version != nil {
		key = "pin:" + strconv.FormatUint(id, 10) + ":" + version.String()
	}

	var pin *Pin
	op := observe.Operation{Component: "chain", Name: "resolve", PinID: strconv.FormatUint(id, 10)}
	err := r.mw.Run(ctx, op, func(ctx context.Context) error {
		raw, err := r.pins.Get(ctx, key, func(ctx context.Context) ([]byte, error) {
			p, err := r.resolve(ctx, id, version)
			if err != nil {
				return nil, err
			}
			return json.Marshal(p)
		})
		if err != nil {
			return err
		}
		pin = new(Pin)
		return json.Unmarshal(raw, pin)
	})
	if err != nil {
		return nil, err
	}
	return pin, nil
}

func (r *Reader) resolve(ctx context.Context, id uint64, version *big.Int) (*Pin, error) {
	var store common.Address
	if err := r.call(ctx, r.registry, registryABI, "pinStores", &store, new(big.Int).SetUint64(id)); err != nil {
		return nil, err
	}
	if store == (common.Address{}) {
		return nil, fmt.Errorf("%w: %d", ErrPinNotFound, id)
	}

	pin := &Pin{ID: id, Store: store}
	var latest *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.call(gctx, store, storeABI, "title", &pin.Title) })
	g.Go(func() error { return r.call(gctx, store, storeABI, "tagline", &pin.Tagline) })
	g.Go(func() error { return r.call(gctx, store, storeABI, "latestVersion", &latest) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	pin.LatestVersion = latest.String()

	v := version
	if v == nil {
		v = latest
	}
	if v.Sign() <= 0 {
		return pin, nil
	}
	cid, err := r.VersionContentID(ctx, store, v)
	if err != nil {
		return nil, err
	}
	pin.Version = v.String()
	pin.ContentID = cid
	return pin, nil
}

// VersionContentID returns the content identifier published as version.
func (r *Reader) VersionContentID(ctx context.Context, store common.Address, version *big.Int) (string, error) {
	var cid string
	if err := r.call(ctx, store, storeABI, "versions", &cid, version); err != nil {
		return "", err
	}
	if cid == "" {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}
	return cid, nil
}

// BalanceOf returns how many units of pinID owner holds.
func (r *Reader) BalanceOf(ctx context.Context, owner common.Address, pinID *big.Int) (*big.Int, error) {
	var bal *big.Int
	if err := r.call(ctx, r.registry, registryABI, "balanceOf", &bal, owner, pinID); err != nil {
		return nil, err
	}
	return bal, nil
}

// IsOwner reports whether owner holds pinID.
func (r *Reader) IsOwner(ctx context.Context, owner common.Address, pinID *big.Int) (bool, error) {
	bal, err := r.BalanceOf(ctx, owner, pinID)
	if err != nil {
		return false, err
	}
	return bal.Sign() > 0, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, contract abi.ABI, method string, out any, args ...any) error {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("chain: pack %s: %w", method, err))
	}

	var raw []byte
	err = r.exec.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if callErr != nil && strings.Contains(callErr.Error(), "execution reverted") {
			return resilience.Permanent(callErr)
		}
		return callErr
	})
	if err != nil {
		return fmt.Errorf("chain: call %s: %w", method, err)
	}
	if err := contract.UnpackIntoInterface(out, method, raw); err != nil {
		return fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return nil
}
