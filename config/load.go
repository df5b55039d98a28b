package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jonwraymond/pinog/executor"
	"github.com/jonwraymond/pinog/secret"
)

// PathEnv overrides the config file location.
const PathEnv = "PINOG_CONFIG"

// DefaultPaths are searched in order when no path is given.
var DefaultPaths = []string{"config.yaml", "config.yml", "/etc/pinog/config.yaml"}

const envPrefix = "PINOG_"

// envKeys maps the established variable names to config keys.
var envKeys = map[string]string{
	"PORT":                      "server.port",
	"CORS_ORIGINS":              "server.cors_origins",
	"REDIS_URL":                 "redis.url",
	"RPC_URL":                   "chain.rpc_url",
	"CONTRACT_ADDRESS":          "chain.registry",
	"CHAIN_ID":                  "auth.chain_id",
	"NEXT_PUBLIC_CHAIN_ID":      "auth.chain_id",
	"SIGNED_TS_MAX_AGE_SEC":     "auth.max_age",
	"SIGNED_TS_FUTURE_SKEW_SEC": "auth.future_skew",
	"IPFS_GATEWAY":              "content.gateway",
	"APP_URL":                   "render.base_url",
	"NEXT_PUBLIC_APP_URL":       "render.base_url",
	"EXECUTOR_URL":              "executor.url",
	"JWT_SECRET":                "gate.jwt_secret",
	"API_KEYS":                  "gate.api_keys",
	"LOG_LEVEL":                 "log.level",
	"LOG_FORMAT":                "log.format",
	"OTEL_SERVICE_NAME":         "telemetry.service_name",
	"OTEL_TRACES_EXPORTER":      "telemetry.traces_exporter",
	"OTEL_METRICS_EXPORTER":     "telemetry.metrics_exporter",
	"OTEL_TRACES_SAMPLER_ARG":   "telemetry.sample_ratio",
}

// secondKeys hold durations that the established variables express as a
// bare number of seconds.
var secondKeys = map[string]bool{
	"SIGNED_TS_MAX_AGE_SEC":     true,
	"SIGNED_TS_FUTURE_SKEW_SEC": true,
}

// listKeys accept comma-separated strings.
var listKeys = []string{"server.cors_origins", "gate.api_keys", "render.command", "render.env"}

// Load reads the layered configuration, resolves secret references and
// validates the result. An empty path searches PathEnv and DefaultPaths.
func Load(ctx context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	if err := splitLists(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.resolveSecrets(ctx, secret.NewResolver(true)); err != nil {
		return nil, fmt.Errorf("config: resolve secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envValue maps an environment variable to a config key, or "" to skip it.
func envValue(name, value string) (string, any) {
	if key, ok := envKeys[name]; ok {
		if secondKeys[name] {
			return key, value + "s"
		}
		return key, value
	}
	if rest, ok := strings.CutPrefix(name, envPrefix); ok && name != PathEnv {
		section, field, ok := strings.Cut(strings.ToLower(rest), "_")
		if ok && field != "" {
			return section + "." + field, value
		}
	}
	return "", nil
}

func findFile() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitLists(k *koanf.Koanf) error {
	for _, key := range listKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var items []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		if err := k.Set(key, items); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	targets := []*string{
		&c.Redis.URL,
		&c.Chain.RPCURL,
		&c.Executor.URL,
		&c.Gate.JWTSecret,
	}
	for i := range c.Gate.APIKeys {
		targets = append(targets, &c.Gate.APIKeys[i])
	}
	return r.ResolveAll(ctx, targets...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	if err := c.Cache.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Executor.Mode == executor.ModeRemote && c.Executor.URL == "" {
		errs = append(errs, errors.New("executor.url is required in remote mode"))
	}
	if c.SWR.PollAttempts > 0 && c.SWR.PollInterval <= 0 {
		errs = append(errs, errors.New("swr.poll_interval must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
