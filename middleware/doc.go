// Package middleware composes request admission as an ordered [Pipeline] of
// checks. Each [Check] returns one of three verdicts: Allow admits the
// request and skips the remaining checks, Deny writes an error response, and
// Defer hands the request to the next check. A request for which every check
// defers reaches the handler.
//
// # Checks
//
//   - [PublicPaths] admits configured path prefixes.
//   - [RateLimit] charges one request per client identity and rejects with 429.
//   - [Revocation] consults the shared revocation list via remote.Validator.
//   - [Structural] verifies signature and expiry and attaches the [Principal].
//   - [RequirePrincipal] and [RequireRole] gate protected handlers.
//
// # What this package must NOT do
//
//   - Issue tokens or write to the revocation list.
//   - Surface store errors to clients. Checks backed by the store fail open.
package middleware
