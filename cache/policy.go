package cache

import (
	"errors"
	"fmt"
	"time"
)

// Policy holds the timing parameters of the rendered-card cache.
type Policy struct {
	// TTL is how long an entry stays available, stale or not.
	TTL time.Duration

	// Revalidate is the freshness window. Once it lapses a hit is served
	// stale and triggers a background refresh.
	Revalidate time.Duration

	// LockTTL bounds how long a crashed generator can hold a key.
	LockTTL time.Duration

	// BundleMaxAge is the client max-age for customized (bundle) requests.
	BundleMaxAge time.Duration
}

// DefaultPolicy returns the production timings: 7 day availability, a 60s
// freshness window and a 30s lock.
func DefaultPolicy() Policy {
	return Policy{
		TTL:          7 * 24 * time.Hour,
		Revalidate:   60 * time.Second,
		LockTTL:      30 * time.Second,
		BundleMaxAge: 60 * time.Second,
	}
}

// Validate rejects non-positive durations and a freshness window longer
// than the entry TTL.
func (p Policy) Validate() error {
	var errs []error
	if p.TTL <= 0 {
		errs = append(errs, errors.New("cache: ttl must be positive"))
	}
	if p.Revalidate <= 0 {
		errs = append(errs, errors.New("cache: revalidate window must be positive"))
	}
	if p.LockTTL <= 0 {
		errs = append(errs, errors.New("cache: lock ttl must be positive"))
	}
	if p.Revalidate > p.TTL {
		errs = append(errs, fmt.Errorf("cache: revalidate window %s exceeds ttl %s", p.Revalidate, p.TTL))
	}
	return errors.Join(errs...)
}

// CacheControl returns the Cache-Control header for a served image.
func (p Policy) CacheControl(bundle bool) string {
	window := p.Revalidate
	if bundle && p.BundleMaxAge > 0 {
		window = p.BundleMaxAge
	}
	secs := int64(window / time.Second)
	return fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", secs, secs)
}
