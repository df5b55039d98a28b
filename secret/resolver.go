package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

const refPrefix = "secretref:"

var (
	envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	refPattern = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)
)

// Resolver expands environment variables and secret references.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a Resolver with the env and file providers plus any
// extras. In strict mode a reference resolving to "" is an error.
func NewResolver(strict bool, extra ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range append([]Provider{EnvProvider{}, FileProvider{}}, extra...) {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Resolve returns value with variables expanded and references replaced.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if !strings.Contains(expanded, refPrefix) {
		return expanded, nil
	}

	matches := refPattern.FindAllStringSubmatchIndex(expanded, -1)
	out := expanded
	// Replace back to front so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		v, err := r.lookup(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + v + out[m[1]:]
	}
	return out, nil
}

// ResolveAll resolves each target in place. Empty targets are skipped.
func (r *Resolver) ResolveAll(ctx context.Context, targets ...*string) error {
	for _, t := range targets {
		if t == nil || *t == "" {
			continue
		}
		v, err := r.Resolve(ctx, *t)
		if err != nil {
			return err
		}
		*t = v
	}
	return nil
}

func (r *Resolver) lookup(ctx context.Context, provider, ref string) (string, error) {
	p, ok := r.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmpty, provider, ref)
	}
	return v, nil
}

// ExpandEnvStrict expands $VAR and ${VAR}. Every ${VAR} must be set; $$
// produces a literal dollar sign.
func ExpandEnvStrict(s string) (string, error) {
	const sentinel = "\x00PINOG_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", sentinel)

	var missing []string
	for _, m := range envPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		missing = compact(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return strings.ReplaceAll(os.ExpandEnv(s), sentinel, "$"), nil
}

func compact(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
