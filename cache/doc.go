// Package cache holds the rendered-card cache and its coordination
// primitives.
//
// Cached images live in a shared Redis store (the source of truth) with a
// bounded in-process FIFO cache in front of it that also serves as the
// fallback when Redis is unreachable. Tiered composes the two and tracks
// freshness markers. Locker implementations provide the per-key
// single-flight lock used to coordinate regeneration across instances.
//
// Keys are derived by DefaultKeyer from the Pin id, content version, the
// signed parameter hash, a hash of the free-form query overrides and the
// signed timestamp. The cache-bust query key never contributes.
package cache
