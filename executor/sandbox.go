package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/goccy/go-json"
)

// maxFetchBody bounds a response body read by sandboxed fetch.
const maxFetchBody = 1 << 20

// The host hooks are captured by closures and removed from the global
// scope before user code runs.
const preludeSrc = `(function (g) {
	const log = g.__hostLog, respond = g.__hostRespond, hostFetch = g.__hostFetch;
	delete g.__hostLog;
	delete g.__hostRespond;
	delete g.__hostFetch;

	const console = {};
	for (const level of ["log", "info", "warn", "error", "debug"]) {
		console[level] = function () { log(level, Array.prototype.slice.call(arguments)); };
	}
	g.console = console;

	const once = {};
	g.Lit = { Actions: {
		runOnce: function (opts, fn) {
			const f = typeof fn === "function" ? fn : opts && opts.function;
			const name = (opts && opts.name) || "";
			if (!(name in once)) {
				once[name] = Promise.resolve().then(function () { return f(); });
			}
			return once[name];
		},
		setResponse: function (r) { respond(r && r.response !== undefined ? String(r.response) : ""); },
		decryptAndCombine: function () {
			return Promise.reject(new Error("decryption is not available in this environment"));
		},
	} };

	if (hostFetch) {
		g.fetch = function (url, init) {
			try {
				const r = hostFetch(String(url), init || {});
				return Promise.resolve({
					ok: r.ok,
					status: r.status,
					statusText: r.statusText,
					headers: r.headers,
					text: function () { return Promise.resolve(r.body); },
					json: function () { return Promise.resolve().then(function () { return JSON.parse(r.body); }); },
				});
			} catch (e) {
				return Promise.reject(e);
			}
		};
	}
})(this);`

var prelude = goja.MustCompile("prelude.js", preludeSrc, false)

// Sandbox evaluates data code in a fresh goja runtime per call.
type Sandbox struct {
	timeout time.Duration
	client  *http.Client
}

// SandboxOption configures a Sandbox.
type SandboxOption func(*Sandbox)

// WithTimeout bounds each execution. Zero keeps the default of 5s.
func WithTimeout(d time.Duration) SandboxOption {
	return func(s *Sandbox) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithFetch exposes fetch backed by client. A nil client uses a default
// client without cookies or credentials.
func WithFetch(client *http.Client) SandboxOption {
	return func(s *Sandbox) {
		if client == nil {
			client = &http.Client{}
		}
		s.client = client
	}
}

// NewSandbox creates a Sandbox.
func NewSandbox(opts ...SandboxOption) *Sandbox {
	s := &Sandbox{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Executor = (*Sandbox)(nil)

// run holds the state of one execution.
type run struct {
	vm       *goja.Runtime
	mu       sync.Mutex
	logs     []string
	response *string
}

// Execute runs code and returns the object produced by main(params), or
// the response passed to Lit.Actions.setResponse when main is absent.
func (s *Sandbox) Execute(ctx context.Context, code string, params map[string]any) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		return &Result{}, ErrMissingCode
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	r := &run{vm: goja.New()}
	stop := context.AfterFunc(ctx, func() { r.vm.Interrupt(ctx.Err()) })
	defer stop()

	result, err := r.execute(ctx, s.client, code, params)
	out := &Result{Result: result, Logs: r.collected()}
	if err != nil {
		return out, mapError(ctx, err)
	}
	return out, nil
}

func (r *run) execute(ctx context.Context, client *http.Client, code string, params map[string]any) (map[string]any, error) {
	vm := r.vm
	if err := vm.Set("__hostLog", r.log); err != nil {
		return nil, err
	}
	if err := vm.Set("__hostRespond", r.respond); err != nil {
		return nil, err
	}
	if client != nil {
		fetch := func(url string, init map[string]any) (map[string]any, error) {
			return hostFetch(ctx, client, url, init)
		}
		if err := vm.Set("__hostFetch", fetch); err != nil {
			return nil, err
		}
	}
	if _, err := vm.RunProgram(prelude); err != nil {
		return nil, err
	}

	jsParams, err := r.parse(params)
	if err != nil {
		return nil, err
	}
	if err := vm.Set("jsParams", jsParams); err != nil {
		return nil, err
	}

	if _, err := vm.RunScript("data.js", code); err != nil {
		return nil, err
	}

	if resp, set := r.responded(); set {
		return decodeResponse(resp), nil
	}
	// main may be a lexical binding, which is not a global object property.
	found, err := vm.RunString(`typeof main === "function" ? main : undefined`)
	if err != nil {
		return nil, err
	}
	mainFn, ok := goja.AssertFunction(found)
	if !ok {
		return nil, ErrNoMain
	}
	v, err := mainFn(goja.Undefined(), jsParams)
	if err != nil {
		return nil, err
	}
	v, err = settle(v)
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		if resp, set := r.responded(); set {
			return decodeResponse(resp), nil
		}
		return map[string]any{}, nil
	}
	return r.object(v)
}

// settle unwraps a promise. The job queue has already drained when a call
// from Go returns, so a pending promise can never resolve.
func settle(v goja.Value) (goja.Value, error) {
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return settle(p.Result())
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("%w: %s", ErrExecution, p.Result().String())
	default:
		return nil, fmt.Errorf("%w: main never settled", ErrExecution)
	}
}

// parse converts params into plain script objects so the code cannot
// mutate the caller's map.
func (r *run) parse(params map[string]any) (goja.Value, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("executor: encode params: %w", err)
	}
	parse, _ := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("parse"))
	return parse(goja.Undefined(), r.vm.ToValue(string(raw)))
}

func (r *run) object(v goja.Value) (map[string]any, error) {
	stringify, _ := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("stringify"))
	s, err := stringify(goja.Undefined(), v)
	if err != nil {
		return nil, err
	}
	raw := s.String()
	if !strings.HasPrefix(raw, "{") {
		return nil, ErrInvalidResult
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}
	return out, nil
}

func (r *run) log(level string, args []any) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case string:
			parts = append(parts, v)
		case nil:
			parts = append(parts, "null")
		default:
			b, err := json.Marshal(v)
			if err != nil {
				parts = append(parts, fmt.Sprint(v))
				continue
			}
			parts = append(parts, string(b))
		}
	}
	line := strings.Join(parts, " ")
	if level == "error" || level == "warn" {
		line = "[" + level + "] " + line
	}
	r.mu.Lock()
	r.logs = append(r.logs, line)
	r.mu.Unlock()
}

func (r *run) respond(s string) {
	r.mu.Lock()
	r.response = &s
	r.mu.Unlock()
}

func (r *run) responded() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.response == nil {
		return "", false
	}
	return *r.response, true
}

func (r *run) collected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.logs...)
}

// decodeResponse reads a setResponse payload. Non-object payloads are
// returned under "response".
func decodeResponse(s string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return map[string]any{"response": s}
	}
	return out
}

func mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) && ctx.Err() != nil {
		return ctx.Err()
	}
	// Syntax errors surface as exceptions too.
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return fmt.Errorf("%w: %s", ErrExecution, ex.Value().String())
	}
	return err
}

func hostFetch(ctx context.Context, client *http.Client, url string, init map[string]any) (map[string]any, error) {
	method := http.MethodGet
	if m, ok := init["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("fetch: method %s not allowed", method)
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil, fmt.Errorf("fetch: unsupported url %q", url)
	}

	var body io.Reader
	if b, ok := init["body"].(string); ok && method == http.MethodPost {
		body = strings.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if h, ok := init["headers"].(map[string]any); ok {
		for k, v := range h {
			req.Header.Set(k, fmt.Sprint(v))
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxFetchBody)); err != nil {
		return nil, err
	}
	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	return map[string]any{
		"ok":         resp.StatusCode >= 200 && resp.StatusCode < 300,
		"status":     resp.StatusCode,
		"statusText": http.StatusText(resp.StatusCode),
		"headers":    headers,
		"body":       buf.String(),
	}, nil
}
