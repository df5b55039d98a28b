// Package swr serves rendered cards with stale-while-revalidate semantics
// and fleet-wide single-flight regeneration.
//
// Per cache key, a request resolves to one of four outcomes:
//
//   - HIT-FRESH: an entry exists inside its freshness window. Served as is.
//   - HIT-SWR: an entry exists but its window lapsed. Served immediately;
//     a background refresh is scheduled if no generator holds the lock.
//   - MISS: no entry, or a forced refresh. The caller that wins the lock
//     generates synchronously and writes the entry.
//   - HIT-POLL: another generator holds the lock. The caller polls the
//     cache at a fixed interval and serves the entry once written, or
//     fails with ErrPollTimeout when the attempts run out.
//
// Locks are always released, on success and on failure. A background
// refresh that fails also clears the freshness marker it set, so the next
// request retries.
package swr
