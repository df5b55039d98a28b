package cache

import (
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.TTL != 604800*time.Second {
		t.Errorf("TTL = %s", p.TTL)
	}
	if p.Revalidate != 60*time.Second || p.LockTTL != 30*time.Second {
		t.Errorf("Revalidate = %s, LockTTL = %s", p.Revalidate, p.LockTTL)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name string
		p    Policy
	}{
		{"zero ttl", Policy{Revalidate: time.Second, LockTTL: time.Second}},
		{"zero window", Policy{TTL: time.Hour, LockTTL: time.Second}},
		{"zero lock", Policy{TTL: time.Hour, Revalidate: time.Second}},
		{"window exceeds ttl", Policy{TTL: time.Second, Revalidate: time.Minute, LockTTL: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPolicy_CacheControl(t *testing.T) {
	p := Policy{Revalidate: 120 * time.Second, BundleMaxAge: 60 * time.Second}

	if got := p.CacheControl(false); got != "public, max-age=120, stale-while-revalidate=120" {
		t.Errorf("CacheControl(false) = %q", got)
	}
	if got := p.CacheControl(true); got != "public, max-age=60, stale-while-revalidate=60" {
		t.Errorf("CacheControl(true) = %q", got)
	}
}
