// Package tokenauth is the session authority of a two-service token
// lifecycle: it issues short-lived HS256 access tokens, revokes them before
// expiry, rotates one opaque refresh credential per principal, and validates
// tokens against the shared revocation list.
//
// Methods on [Authority] are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Authority], [Builder],
// [Config] and value types (LoginResult, Claims, MetricsSnapshot). Flow
// orchestration, the backing TTL store and the rate limiter live under
// internal/ and are never exported.
//
// The backing store is a single capability injected through
// [Builder.WithStore]. Revocation, refresh and rate-limit state all share it,
// so switching between a single-instance and a multi-instance deployment is a
// configuration change.
//
// # Degradation contract
//
// When the store is unreachable, revocation checks and rate limiting fail
// open and refresh fails closed. Login and logout keep working.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store keys in its public API.
//   - Start background goroutines. Expiry is delegated to the store.
//   - Import any sub-package that re-imports tokenauth.
package tokenauth
