package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registry = "0x1111111111111111111111111111111111111111"

func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "https://sepolia.base.org")
	t.Setenv("CONTRACT_ADDRESS", registry)
	t.Setenv(PathEnv, "")
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	requiredEnv(t)

	cfg, err := Load(context.Background(), writeFile(t, "empty.yaml", "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.Revalidate)
	assert.Equal(t, 30*time.Second, cfg.Cache.LockTTL)
	assert.Equal(t, 500, cfg.Cache.MemoryCapacity)
	assert.Equal(t, 20, cfg.SWR.PollAttempts)
	assert.Equal(t, 10*time.Second, cfg.Render.Timeout)
	assert.Equal(t, 4, cfg.Render.MaxConcurrent)
	assert.Equal(t, int64(84532), cfg.Auth.ChainID)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	authz := cfg.Authorizer()
	assert.Equal(t, registry, authz.Domain.VerifyingContract.Hex())
	assert.Equal(t, 24*time.Hour, authz.MaxAge)
}

func TestLoad_FileThenEnv(t *testing.T) {
	requiredEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
cache:
  revalidate: 30s
render:
  timeout: 12s
  base_url: https://pinv.app
`)
	t.Setenv("PORT", "7070")
	t.Setenv("SIGNED_TS_MAX_AGE_SEC", "3600")
	t.Setenv("PINOG_RENDER_TIMEOUT", "15s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 30*time.Second, cfg.Cache.Revalidate, "file overrides defaults")
	assert.Equal(t, 15*time.Second, cfg.Render.Timeout)
	assert.Equal(t, "https://pinv.app", cfg.Render.BaseURL)
	assert.Equal(t, time.Hour, cfg.Auth.MaxAge)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_SecretReferences(t *testing.T) {
	requiredEnv(t)
	secretFile := writeFile(t, "redis-url", "redis://:hunter2@cache:6379/0\n")
	t.Setenv("REDIS_URL", "secretref:file:"+secretFile)
	t.Setenv("PINOG_TEST_JWT", "signing-key")
	t.Setenv("JWT_SECRET", "secretref:env:PINOG_TEST_JWT")

	cfg, err := Load(context.Background(), writeFile(t, "empty.yaml", "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "redis://:hunter2@cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "signing-key", cfg.Gate.JWTSecret)
}

func TestLoad_UnresolvableSecret(t *testing.T) {
	requiredEnv(t)
	t.Setenv("REDIS_URL", "secretref:env:PINOG_TEST_MISSING_SECRET")

	_, err := Load(context.Background(), writeFile(t, "empty.yaml", "{}\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Chain.RPCURL = "https://sepolia.base.org"
		c.Chain.Registry = registry
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc url", func(c *Config) { c.Chain.RPCURL = "" }},
		{"bad registry", func(c *Config) { c.Chain.Registry = "0x1234" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"revalidate beyond ttl", func(c *Config) { c.Cache.Revalidate = 30 * 24 * time.Hour }},
		{"remote executor without url", func(c *Config) { c.Executor.Mode = "remote" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
		{"unknown exporter", func(c *Config) { c.Telemetry.MetricsExporter = "statsd" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			assert.True(t, errors.Is(err, ErrInvalid), "err = %v", err)
		})
	}
}

func TestEnvValue(t *testing.T) {
	tests := []struct {
		name, value string
		key         string
		want        any
	}{
		{"REDIS_URL", "redis://x", "redis.url", "redis://x"},
		{"SIGNED_TS_FUTURE_SKEW_SEC", "600", "auth.future_skew", "600s"},
		{"PINOG_CACHE_MEMORY_CAPACITY", "100", "cache.memory_capacity", "100"},
		{PathEnv, "/etc/pinog.yaml", "", nil},
		{"HOME", "/root", "", nil},
	}
	for _, tt := range tests {
		key, got := envValue(tt.name, tt.value)
		if key != tt.key || got != tt.want {
			t.Errorf("envValue(%q) = %q, %v; want %q, %v", tt.name, key, got, tt.key, tt.want)
		}
	}
}
