// Package rate provides the attempt counter used to throttle authentication
// and API traffic per client identity.
//
// # Window semantics
//
// Fixed-window counters: the first increment in a window arms the TTL to the
// window length; later increments leave it alone. Keys are
// ratelimit:{identity}, where callers namespace the identity (login:{ip},
// api:{ip}).
//
// Increment and the ceiling check are separate so a caller can choose
// check-then-charge (login charges only failures) or charge-then-check (the
// API limiter charges every request).
//
// # Degradation
//
// Fail-open: an unreachable store makes Increment return 0 and IsExceeded
// return false.
//
// # What this package must NOT do
//
//   - Decide which endpoints are metered.
//   - Be imported outside this module.
package rate
