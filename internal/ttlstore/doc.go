// Package ttlstore is the key/value capability behind the revocation list,
// the refresh store and the rate limiter.
//
// Three implementations satisfy [Store]:
//   - [Redis]: shared store for multi-instance deployments.
//   - [Memory]: in-process map for single-instance deployments and tests.
//   - [Unavailable]: every call fails with [ErrUnavailable]; used when no
//     backing store is configured.
//
// # Expiry
//
// Entries expire through the backend's own TTL mechanism. Memory expires
// lazily on access and prunes during writes; no implementation starts a
// background goroutine.
//
// # What this package must NOT do
//
//   - Decide fail-open or fail-closed policy. Callers own degradation.
//   - Know the key schema of its callers.
package ttlstore
