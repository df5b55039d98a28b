package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/render/pipeline"
)

// TestHelperProcess is the fake worker. It is only active when run by
// helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("PINOG_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	var in pipeline.Input
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		fmt.Fprintln(os.Stderr, "bad input:", err)
		os.Exit(2)
	}
	switch os.Getenv("PINOG_HELPER_MODE") {
	case "echo":
		fmt.Fprintf(os.Stdout, "%s|%d|%d|%s|%v", in.UICode, in.Width, in.Height, in.BaseURL, in.Props["title"])
	case "fail":
		fmt.Fprintln(os.Stderr, "SyntaxError: unexpected token")
		os.Exit(1)
	case "empty":
	case "env":
		fmt.Fprintf(os.Stdout, "secret=%s path=%t", os.Getenv("PINOG_TEST_SECRET"), os.Getenv("PATH") != "")
	case "hang":
		time.Sleep(time.Minute)
	case "render":
		if err := pipeline.New().Render(context.Background(), in, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func helperRenderer(t *testing.T, mode string, cfg Config) *Renderer {
	t.Helper()
	cfg.Command = []string{os.Args[0], "-test.run=^TestHelperProcess$"}
	cfg.Env = []string{"PINOG_HELPER_PROCESS=1", "PINOG_HELPER_MODE=" + mode}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRenderer_SendsInputAndReadsOutput(t *testing.T) {
	r := helperRenderer(t, "echo", Config{BaseURL: "https://pins.example"})
	out, err := r.Render(context.Background(), Request{UICode: "ui", Props: map[string]any{"title": "T"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got, want := string(out), "ui|1200|800|https://pins.example|T"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRenderer_Failures(t *testing.T) {
	tests := []struct {
		mode    string
		timeout time.Duration
		extra   error
	}{
		{mode: "fail"},
		{mode: "empty"},
		{mode: "hang", timeout: 200 * time.Millisecond, extra: ErrWorkerTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			r := helperRenderer(t, tt.mode, Config{Timeout: tt.timeout})
			start := time.Now()
			_, err := r.Render(context.Background(), Request{UICode: "ui"})
			if !errors.Is(err, ErrRenderFailed) {
				t.Fatalf("err = %v, want ErrRenderFailed", err)
			}
			if tt.extra != nil && !errors.Is(err, tt.extra) {
				t.Errorf("err = %v, want %v", err, tt.extra)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Errorf("render took %s", elapsed)
			}
		})
	}
}

func TestRenderer_CancelKillsWorker(t *testing.T) {
	r := helperRenderer(t, "hang", Config{Timeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := r.Render(ctx, Request{UICode: "ui"})
	if !errors.Is(err, ErrRenderFailed) || !errors.Is(err, context.Canceled) || errors.Is(err, ErrWorkerTimeout) {
		t.Fatalf("err = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("render took %s", elapsed)
	}
}

func TestRenderer_CallerDeadlineIsNotWorkerTimeout(t *testing.T) {
	r := helperRenderer(t, "hang", Config{Timeout: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Render(ctx, Request{UICode: "ui"})
	if !errors.Is(err, ErrRenderFailed) || errors.Is(err, ErrWorkerTimeout) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestRenderer_WorkerEnvOmitsServerSecrets(t *testing.T) {
	t.Setenv("PINOG_TEST_SECRET", "hunter2")
	r := helperRenderer(t, "env", Config{})

	out, err := r.Render(context.Background(), Request{UICode: "ui"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got, want := string(out), "secret= path=true"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRenderer_EndToEnd(t *testing.T) {
	r := helperRenderer(t, "render", Config{Width: 240, Height: 120})
	out, err := r.Render(context.Background(), Request{
		UICode: `export default ({ title }) => <div style={{ backgroundColor: "navy", width: "100%", height: "100%" }}>{title}</div>;`,
		Props:  map[string]any{"title": "Hello"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 240 || b.Dy() != 120 {
		t.Errorf("bounds = %v", b)
	}
}

func TestPlaceholder(t *testing.T) {
	for _, label := range []string{LabelNotFound, LabelNoCode, LabelRenderError, LabelTimeout, LabelError} {
		b := Placeholder(label)
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("%s: %v", label, err)
		}
		if img.Bounds().Dx() != placeholderW {
			t.Errorf("%s: width = %d", label, img.Bounds().Dx())
		}
	}
	if !bytes.Equal(Placeholder(LabelTimeout), Placeholder(LabelTimeout)) {
		t.Error("placeholder not stable")
	}
	if bytes.Equal(Placeholder(LabelTimeout), Placeholder(LabelError)) {
		t.Error("labels render identically")
	}
}
