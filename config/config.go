package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jonwraymond/pinog/auth"
	"github.com/jonwraymond/pinog/cache"
	"github.com/jonwraymond/pinog/chain"
	"github.com/jonwraymond/pinog/content"
	"github.com/jonwraymond/pinog/executor"
	"github.com/jonwraymond/pinog/observe"
	"github.com/jonwraymond/pinog/render"
	"github.com/jonwraymond/pinog/swr"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig      `koanf:"server"`
	Cache     CacheConfig       `koanf:"cache"`
	Redis     cache.RedisConfig `koanf:"redis"`
	SWR       swr.Config        `koanf:"swr"`
	Render    render.Config     `koanf:"render"`
	Auth      AuthConfig        `koanf:"auth"`
	Gate      auth.GateConfig   `koanf:"gate"`
	Chain     ChainConfig       `koanf:"chain"`
	Content   content.Config    `koanf:"content"`
	Executor  executor.Config   `koanf:"executor"`
	Log       LogConfig         `koanf:"log"`
	Telemetry TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port              int           `koanf:"port" validate:"gt=0,lte=65535"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// PreviewRateLimit is requests per minute per client IP on the preview
	// and execute endpoints. Zero disables the limit.
	PreviewRateLimit int `koanf:"preview_rate_limit" validate:"gte=0"`
}

// CacheConfig holds the card cache timings and the in-process tier size.
type CacheConfig struct {
	TTL            time.Duration `koanf:"ttl"`
	Revalidate     time.Duration `koanf:"revalidate"`
	LockTTL        time.Duration `koanf:"lock_ttl"`
	BundleMaxAge   time.Duration `koanf:"bundle_max_age"`
	MemoryCapacity int           `koanf:"memory_capacity" validate:"gte=0"`
	MemoryTTL      time.Duration `koanf:"memory_ttl" validate:"gte=0"`
}

func (c CacheConfig) Policy() cache.Policy {
	return cache.Policy{
		TTL:          c.TTL,
		Revalidate:   c.Revalidate,
		LockTTL:      c.LockTTL,
		BundleMaxAge: c.BundleMaxAge,
	}
}

func (c CacheConfig) Memory() cache.MemoryConfig {
	return cache.MemoryConfig{Capacity: c.MemoryCapacity, TTL: c.MemoryTTL}
}

// AuthConfig configures bundle authorization.
type AuthConfig struct {
	MaxAge           time.Duration `koanf:"max_age" validate:"gt=0"`
	FutureSkew       time.Duration `koanf:"future_skew" validate:"gte=0"`
	ChainID          int64         `koanf:"chain_id" validate:"gt=0"`
	PreviewPinID     uint64        `koanf:"preview_pin_id"`
	RequireSignature bool          `koanf:"require_signature"`
}

// ChainConfig configures the registry reader.
type ChainConfig struct {
	RPCURL      string        `koanf:"rpc_url" validate:"required,url"`
	Registry    string        `koanf:"registry" validate:"required,eth_addr"`
	MetadataTTL time.Duration `koanf:"metadata_ttl" validate:"gte=0"`
	CallTimeout time.Duration `koanf:"call_timeout" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// TelemetryConfig selects trace and metric exporters.
type TelemetryConfig struct {
	ServiceName     string  `koanf:"service_name" validate:"required"`
	TracesExporter  string  `koanf:"traces_exporter" validate:"oneof=otlp stdout none"`
	MetricsExporter string  `koanf:"metrics_exporter" validate:"oneof=otlp prometheus stdout none"`
	SampleRatio     float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// Default returns the production defaults.
func Default() *Config {
	policy := cache.DefaultPolicy()
	mem := cache.DefaultMemoryConfig()
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			PreviewRateLimit:  60,
		},
		Cache: CacheConfig{
			TTL:            policy.TTL,
			Revalidate:     policy.Revalidate,
			LockTTL:        policy.LockTTL,
			BundleMaxAge:   policy.BundleMaxAge,
			MemoryCapacity: mem.Capacity,
			MemoryTTL:      mem.TTL,
		},
		Redis: cache.DefaultRedisConfig(),
		SWR: swr.Config{
			PollInterval: 500 * time.Millisecond,
			PollAttempts: 20,
			RefreshDelay: 500 * time.Millisecond,
		},
		Render: render.Config{
			Width:         1200,
			Height:        800,
			Timeout:       10 * time.Second,
			MaxConcurrent: 4,
			RatePerSecond: 20,
			Burst:         10,
			BaseURL:       "http://localhost:3000",
		},
		Auth: AuthConfig{
			MaxAge:     24 * time.Hour,
			FutureSkew: 10 * time.Minute,
			ChainID:    84532,
		},
		Chain: ChainConfig{
			MetadataTTL: 60 * time.Second,
			CallTimeout: 5 * time.Second,
		},
		Content: content.Config{
			URL:     "https://gateway.pinata.cloud/ipfs/",
			Timeout: 10 * time.Second,
		},
		Executor: executor.Config{
			Mode:    executor.ModeSandbox,
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			ServiceName:     "pinog",
			TracesExporter:  "none",
			MetricsExporter: "prometheus",
			SampleRatio:     1,
		},
	}
}

// RegistryAddress returns the parsed registry contract address.
func (c *Config) RegistryAddress() common.Address {
	return common.HexToAddress(c.Chain.Registry)
}

// Authorizer returns the bundle authorizer settings.
func (c *Config) Authorizer() auth.AuthorizerConfig {
	return auth.AuthorizerConfig{
		Domain: auth.Domain{
			ChainID:           c.Auth.ChainID,
			VerifyingContract: c.RegistryAddress(),
		},
		MaxAge:           c.Auth.MaxAge,
		FutureSkew:       c.Auth.FutureSkew,
		PreviewPinID:     c.Auth.PreviewPinID,
		RequireSignature: c.Auth.RequireSignature,
	}
}

// Reader returns the chain reader settings.
func (c *Config) Reader() chain.Config {
	return chain.Config{
		RPCURL:      c.Chain.RPCURL,
		Registry:    c.RegistryAddress(),
		MetadataTTL: c.Chain.MetadataTTL,
		CallTimeout: c.Chain.CallTimeout,
	}
}

// Observe returns the telemetry settings.
func (c *Config) Observe(version string) observe.Config {
	return observe.Config{
		ServiceName: c.Telemetry.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.TracesExporter != "none",
			Exporter:  c.Telemetry.TracesExporter,
			SamplePct: c.Telemetry.SampleRatio,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.MetricsExporter != "none",
			Exporter: c.Telemetry.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Log.Level,
			Format:  c.Log.Format,
		},
	}
}
