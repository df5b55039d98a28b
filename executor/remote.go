package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/resilience"
)

// Remote delegates execution to an HTTP service.
type Remote struct {
	url     string
	timeout time.Duration
	client  *http.Client
	exec    *resilience.Executor
}

var _ Executor = (*Remote)(nil)

// NewRemote creates a Remote posting to endpoint. A nil exec calls through.
func NewRemote(endpoint string, timeout time.Duration, exec *resilience.Executor) (*Remote, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("executor: invalid remote url %q", endpoint)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if exec == nil {
		exec = resilience.NewExecutor()
	}
	return &Remote{url: endpoint, timeout: timeout, client: &http.Client{}, exec: exec}, nil
}

type remoteRequest struct {
	Code   string         `json:"code"`
	Params map[string]any `json:"params"`
}

type remoteResponse struct {
	Result json.RawMessage `json:"result"`
	Logs   []string        `json:"logs"`
	Error  string          `json:"error"`
}

// Execute posts code and params and decodes {result, logs}.
func (r *Remote) Execute(ctx context.Context, code string, params map[string]any) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		return &Result{}, ErrMissingCode
	}
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(remoteRequest{Code: code, Params: params})
	if err != nil {
		return &Result{}, fmt.Errorf("executor: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var decoded remoteResponse
	err = r.exec.Execute(ctx, func(ctx context.Context) error {
		decoded = remoteResponse{}
		return r.post(ctx, body, &decoded)
	})
	out := &Result{Logs: decoded.Logs}
	if err != nil {
		if ctx.Err() != nil {
			return out, ErrTimeout
		}
		return out, err
	}

	res, err := decodeResult(decoded.Result)
	if err != nil {
		return out, err
	}
	out.Result = res
	return out, nil
}

func (r *Remote) post(ctx context.Context, body []byte, into *remoteResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrRemote, err)
	}
	// Error bodies still carry logs.
	_ = json.Unmarshal(raw, into)

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, into.Error)
	case resp.StatusCode != http.StatusOK:
		return resilience.Permanent(fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, into.Error))
	case into.Error != "":
		return resilience.Permanent(fmt.Errorf("%w: %s", ErrExecution, into.Error))
	}
	return nil
}

// decodeResult accepts an object, a JSON string holding an object, or null.
func decodeResult(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResult, err)
		}
		return decodeResponse(s), nil
	}
	if raw[0] != '{' {
		return nil, ErrInvalidResult
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}
	return out, nil
}
