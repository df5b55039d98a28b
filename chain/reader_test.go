package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/jonwraymond/pinog/resilience"
)

var testRegistry = common.HexToAddress("0x1000000000000000000000000000000000000001")

type fakeStore struct {
	title, tagline string
	latest         int64
	versions       map[int64]string
}

type fakeChain struct {
	stores   map[uint64]common.Address
	meta     map[common.Address]fakeStore
	balances map[common.Address]int64
	calls    atomic.Int32
	failures atomic.Int32
}

func newFakeChain() *fakeChain {
	store := common.HexToAddress("0x2000000000000000000000000000000000000002")
	empty := common.HexToAddress("0x3000000000000000000000000000000000000003")
	return &fakeChain{
		stores: map[uint64]common.Address{7: store, 8: empty},
		meta: map[common.Address]fakeStore{
			store: {title: "Counter", tagline: "counts things", latest: 2, versions: map[int64]string{1: "bafy-v1", 2: "bafy-v2"}},
			empty: {title: "Draft"},
		},
		balances: map[common.Address]int64{},
	}
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return nil, errors.New("connection reset")
	}

	if *msg.To == testRegistry {
		m, err := registryABI.MethodById(msg.Data[:4])
		if err != nil {
			return nil, err
		}
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		switch m.Name {
		case "pinStores":
			return m.Outputs.Pack(f.stores[args[0].(*big.Int).Uint64()])
		case "balanceOf":
			return m.Outputs.Pack(big.NewInt(f.balances[args[0].(common.Address)]))
		}
		return nil, fmt.Errorf("unexpected registry method %s", m.Name)
	}

	meta, ok := f.meta[*msg.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	m, err := storeABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "title":
		return m.Outputs.Pack(meta.title)
	case "tagline":
		return m.Outputs.Pack(meta.tagline)
	case "latestVersion":
		return m.Outputs.Pack(big.NewInt(meta.latest))
	case "versions":
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(meta.versions[args[0].(*big.Int).Int64()])
	}
	return nil, fmt.Errorf("unexpected store method %s", m.Name)
}

func newTestReader(t *testing.T, f *fakeChain, opts ...Option) *Reader {
	t.Helper()
	r, err := NewReader(f, Config{Registry: testRegistry}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolvePin_Latest(t *testing.T) {
	r := newTestReader(t, newFakeChain())

	pin, err := r.ResolvePin(context.Background(), 7, nil)
	if err != nil {
		t.Fatalf("ResolvePin: %v", err)
	}
	if pin.Title != "Counter" || pin.Tagline != "counts things" {
		t.Errorf("metadata = %+v", pin)
	}
	if pin.LatestVersion != "2" || pin.Version != "2" || pin.ContentID != "bafy-v2" {
		t.Errorf("version = %s/%s/%s", pin.LatestVersion, pin.Version, pin.ContentID)
	}
}

func TestResolvePin_ExplicitVersion(t *testing.T) {
	r := newTestReader(t, newFakeChain())

	pin, err := r.ResolvePin(context.Background(), 7, big.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if pin.ContentID != "bafy-v1" || pin.Version != "1" {
		t.Errorf("pin = %+v", pin)
	}

	if _, err := r.ResolvePin(context.Background(), 7, big.NewInt(9)); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("unknown version err = %v", err)
	}
}

func TestResolvePin_NotFound(t *testing.T) {
	r := newTestReader(t, newFakeChain())
	if _, err := r.ResolvePin(context.Background(), 99, nil); !errors.Is(err, ErrPinNotFound) {
		t.Fatalf("err = %v, want ErrPinNotFound", err)
	}
}

func TestResolvePin_NoVersions(t *testing.T) {
	r := newTestReader(t, newFakeChain())
	pin, err := r.ResolvePin(context.Background(), 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pin.ContentID != "" || pin.Title != "Draft" {
		t.Errorf("pin = %+v", pin)
	}
}

func TestResolvePin_Cached(t *testing.T) {
	f := newFakeChain()
	r := newTestReader(t, f)
	ctx := context.Background()

	if _, err := r.ResolvePin(ctx, 7, nil); err != nil {
		t.Fatal(err)
	}
	first := f.calls.Load()
	if _, err := r.ResolvePin(ctx, 7, nil); err != nil {
		t.Fatal(err)
	}
	if f.calls.Load() != first {
		t.Errorf("second resolve made %d calls", f.calls.Load()-first)
	}
}

func TestResolvePin_RetriesTransientFailures(t *testing.T) {
	f := newFakeChain()
	f.failures.Store(1)
	exec := resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)
	r := newTestReader(t, f, WithExecutor(exec))

	if _, err := r.ResolvePin(context.Background(), 7, nil); err != nil {
		t.Fatalf("ResolvePin: %v", err)
	}
}

func TestIsOwner(t *testing.T) {
	f := newFakeChain()
	owner := common.HexToAddress("0x4000000000000000000000000000000000000004")
	f.balances[owner] = 1
	r := newTestReader(t, f)
	ctx := context.Background()

	ok, err := r.IsOwner(ctx, owner, big.NewInt(7))
	if err != nil || !ok {
		t.Errorf("owner: %v, %v", ok, err)
	}
	ok, err = r.IsOwner(ctx, common.HexToAddress("0x5"), big.NewInt(7))
	if err != nil || ok {
		t.Errorf("stranger: %v, %v", ok, err)
	}
}

func TestNewReader_RequiresRegistry(t *testing.T) {
	if _, err := NewReader(newFakeChain(), Config{}); !errors.Is(err, ErrNoRegistry) {
		t.Errorf("err = %v, want ErrNoRegistry", err)
	}
}
