// Package flows contains the orchestration bodies behind every Authority
// operation: login, registration, logout, refresh and local validation.
//
// Each Run function accepts a typed dependency struct and returns a Result
// carrying a FailureKind instead of a host-level error. The root package maps
// kinds to its exported sentinels, metrics and audit events, which keeps the
// Authority type thin and lets flows be tested against plain fakes.
//
// # Architecture boundaries
//
// Flows coordinate the token codec, the revocation list, the refresh store,
// the rate limiter and the user provider. They own none of them; every
// collaborator arrives through the Deps struct.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root tokenauth package (import cycle).
//   - Start goroutines or perform I/O other than through its dependencies.
package flows
