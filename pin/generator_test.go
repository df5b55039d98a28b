package pin

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/pinog/auth"
	"github.com/jonwraymond/pinog/chain"
	"github.com/jonwraymond/pinog/content"
	"github.com/jonwraymond/pinog/executor"
	"github.com/jonwraymond/pinog/render"
)

const (
	latestCID = "bafylatest"
	v2CID     = "bafyv2"
)

type fakePins struct {
	pins map[uint64]chain.Pin
	// versions maps a version number to its content id.
	versions map[string]string
}

func (f *fakePins) ResolvePin(_ context.Context, id uint64, version *big.Int) (*chain.Pin, error) {
	p, ok := f.pins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", chain.ErrPinNotFound, id)
	}
	if version != nil {
		cid, ok := f.versions[version.String()]
		if !ok {
			return nil, fmt.Errorf("%w: %s", chain.ErrVersionNotFound, version)
		}
		p.Version, p.ContentID = version.String(), cid
	}
	return &p, nil
}

type fakeManifests map[string]*content.Manifest

func (f fakeManifests) Fetch(_ context.Context, id string) (*content.Manifest, error) {
	m, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", content.ErrNotFound, id)
	}
	return m, nil
}

type call struct {
	Code   string
	Params map[string]any
}

type fakeExecutor struct {
	mu     sync.Mutex
	calls  []call
	result map[string]any
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, code string, params map[string]any) (*executor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Code: code, Params: params})
	if f.err != nil {
		return &executor.Result{Logs: []string{"boom"}}, f.err
	}
	return &executor.Result{Result: f.result}, nil
}

type fakeRenderer struct {
	last render.Request
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, req render.Request) ([]byte, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + req.UICode), nil
}

type fixture struct {
	pins      *fakePins
	manifests fakeManifests
	exec      *fakeExecutor
	renderer  *fakeRenderer
	gen       *Generator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		pins: &fakePins{
			pins: map[uint64]chain.Pin{
				7: {ID: 7, Title: "Weather", Tagline: "Live", ContentID: latestCID, Version: "3"},
				8: {ID: 8, Title: "Empty"},
			},
			versions: map[string]string{"2": v2CID},
		},
		manifests: fakeManifests{
			latestCID: {
				UICode:      "latest-ui",
				DataCode:    "latest-data",
				PreviewData: map[string]any{"city": "Lisbon", "unit": "C"},
				UserConfig:  map[string]any{"theme": "dark"},
			},
			v2CID: {
				UICode:      "v2-ui",
				DataCode:    "v2-data",
				PreviewData: map[string]any{"city": "Porto"},
			},
			"bafystatic": {
				UICode:      "static-ui",
				PreviewData: map[string]any{"label": "static"},
			},
		},
		exec:     &fakeExecutor{result: map[string]any{"temp": 21.0}},
		renderer: &fakeRenderer{},
	}
	gen, err := New(f.pins, f.manifests, f.exec, f.renderer)
	require.NoError(t, err)
	f.gen = gen
	return f
}

func TestGenerate_WithoutBundleRunsDataCode(t *testing.T) {
	f := newFixture(t)

	out, err := f.gen.Generate(context.Background(), Request{
		PinID:     7,
		Overrides: map[string]string{"city": "Faro"},
	})
	require.NoError(t, err)
	assert.Equal(t, "png:latest-ui", string(out))

	require.Len(t, f.exec.calls, 1)
	assert.Equal(t, "latest-data", f.exec.calls[0].Code)
	assert.Equal(t, map[string]any{"city": "Faro", "unit": "C"}, f.exec.calls[0].Params)

	assert.Equal(t, "7", f.renderer.last.PinID)
	assert.Equal(t, map[string]any{
		"city":    "Lisbon",
		"unit":    "C",
		"theme":   "dark",
		"temp":    21.0,
		"title":   "Weather",
		"tagline": "Live",
	}, f.renderer.last.Props)
}

func TestPrepare_WithoutDataCodeMergesOverrides(t *testing.T) {
	f := newFixture(t)
	f.pins.pins[9] = chain.Pin{ID: 9, Title: "Static", ContentID: "bafystatic"}

	job, err := f.gen.Prepare(context.Background(), Request{
		PinID:     9,
		Overrides: map[string]string{"label": "custom"},
	})
	require.NoError(t, err)
	assert.Empty(t, f.exec.calls)
	assert.Equal(t, "static-ui", job.UICode)
	assert.Equal(t, "custom", job.Props["label"])
	assert.Equal(t, "Static", job.Props["title"])
}

func TestPrepare_BundleVersionReplacesManifest(t *testing.T) {
	f := newFixture(t)

	job, err := f.gen.Prepare(context.Background(), Request{
		PinID: 7,
		Decision: auth.Decision{Bundle: &auth.Bundle{
			Version: "2",
			Params:  map[string]any{"city": "Braga"},
		}},
		Overrides: map[string]string{"unit": "F"},
	})
	require.NoError(t, err)

	assert.Equal(t, "v2-ui", job.UICode)
	require.Len(t, f.exec.calls, 1)
	assert.Equal(t, "v2-data", f.exec.calls[0].Code)
	assert.Equal(t, map[string]any{"city": "Braga", "unit": "F"}, f.exec.calls[0].Params)

	// Base props come from the bundle version, not the latest manifest.
	assert.Equal(t, "Porto", job.Props["city"])
	assert.NotContains(t, job.Props, "theme")
	assert.Equal(t, 21.0, job.Props["temp"])
}

func TestPrepare_BundleContentIDVersion(t *testing.T) {
	f := newFixture(t)

	job, err := f.gen.Prepare(context.Background(), Request{
		PinID:    7,
		Decision: auth.Decision{Bundle: &auth.Bundle{Version: "bafystatic"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "static-ui", job.UICode)
	assert.Equal(t, "static", job.Props["label"])
	assert.Empty(t, f.exec.calls, "a bundle without params runs no data code")
}

func TestPrepare_BundleParamsWithoutDataCode(t *testing.T) {
	f := newFixture(t)

	job, err := f.gen.Prepare(context.Background(), Request{
		PinID: 7,
		Decision: auth.Decision{Bundle: &auth.Bundle{
			Version: "bafystatic",
			Params:  map[string]any{"label": "signed"},
		}},
		Overrides: map[string]string{"extra": "x"},
	})
	require.NoError(t, err)
	assert.Empty(t, f.exec.calls)
	assert.Equal(t, "signed", job.Props["label"])
	assert.NotContains(t, job.Props, "extra")
}

func TestPrepare_BundleWithoutVersionUsesLatestDataCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.gen.Prepare(context.Background(), Request{
		PinID:    7,
		Decision: auth.Decision{Bundle: &auth.Bundle{Params: map[string]any{"city": "Evora"}}},
	})
	require.NoError(t, err)
	require.Len(t, f.exec.calls, 1)
	assert.Equal(t, "latest-data", f.exec.calls[0].Code)
	assert.Equal(t, map[string]any{"city": "Evora"}, f.exec.calls[0].Params)
}

func TestPrepare_ExplicitVersionQuery(t *testing.T) {
	f := newFixture(t)

	job, err := f.gen.Prepare(context.Background(), Request{PinID: 7, Version: "2"})
	require.NoError(t, err)
	assert.Equal(t, "v2-ui", job.UICode)

	_, err = f.gen.Prepare(context.Background(), Request{PinID: 7, Version: "99"})
	assert.ErrorIs(t, err, ErrPinNotFound)
}

func TestPrepare_DataCodeFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.exec.err = executor.ErrExecution

	job, err := f.gen.Prepare(context.Background(), Request{PinID: 7})
	require.NoError(t, err)
	assert.NotContains(t, job.Props, "temp")
	assert.Equal(t, "Lisbon", job.Props["city"])
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown pin", Request{PinID: 42}, ErrPinNotFound},
		{"no content", Request{PinID: 8}, ErrNoUICode},
		{"preview pin without bundle", Request{PinID: 0}, ErrNoUICode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.gen.Generate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerate_PreviewPinWithBundle(t *testing.T) {
	f := newFixture(t)

	_, err := f.gen.Generate(context.Background(), Request{
		PinID:    0,
		Decision: auth.Decision{Bundle: &auth.Bundle{Version: "bafystatic"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "static-ui", f.renderer.last.UICode)
	assert.Equal(t, PreviewTitle, f.renderer.last.Props["title"])
}

func TestGenerate_RenderFailure(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = fmt.Errorf("%w: worker exited", render.ErrRenderFailed)

	_, err := f.gen.Generate(context.Background(), Request{PinID: 7})
	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.ErrorIs(t, err, render.ErrRenderFailed)
}

func TestGenerate_ChainErrorPassesThrough(t *testing.T) {
	f := newFixture(t)
	rpcDown := errors.New("rpc unavailable")
	gen, err := New(errPins{rpcDown}, f.manifests, f.exec, f.renderer)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), Request{PinID: 7})
	assert.ErrorIs(t, err, rpcDown)
	assert.NotErrorIs(t, err, ErrPinNotFound)
}

type errPins struct{ err error }

func (e errPins) ResolvePin(context.Context, uint64, *big.Int) (*chain.Pin, error) {
	return nil, e.err
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, fakeManifests{}, &fakeExecutor{}, &fakeRenderer{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}
