package auth

// GateConfig configures the optional credential gate on preview endpoints.
type GateConfig struct {
	JWTSecret   string   `koanf:"jwt_secret"`
	JWTIssuer   string   `koanf:"jwt_issuer"`
	JWTAudience string   `koanf:"jwt_audience"`
	APIKeys     []string `koanf:"api_keys"`
}

// Enabled reports whether any credential source is configured.
func (c GateConfig) Enabled() bool {
	return c.JWTSecret != "" || len(c.APIKeys) > 0
}

// NewGate builds the preview authenticator from cfg, or nil when the gate
// is disabled.
func NewGate(cfg GateConfig) Authenticator {
	if !cfg.Enabled() {
		return nil
	}

	var auths []Authenticator
	if cfg.JWTSecret != "" {
		auths = append(auths, NewJWTAuthenticator(JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}))
	}
	if len(cfg.APIKeys) > 0 {
		store := NewMemoryAPIKeyStore()
		for _, k := range cfg.APIKeys {
			store.Add(k, "api-key:"+HashAPIKey(k)[:8])
		}
		auths = append(auths, NewAPIKeyAuthenticator(store))
	}
	if len(auths) == 1 {
		return auths[0]
	}
	return NewCompositeAuthenticator(auths...)
}
