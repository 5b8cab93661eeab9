// Package session holds the two pieces of shared session state: the
// revocation list of tids and the single live refresh credential per
// principal.
//
// # Key schema
//
//   - blacklist_jti:{tid}   marker, TTL = remaining access-token lifetime
//   - refresh:{principal}   credential digest, TTL = refresh lifetime
//
// # Degradation
//
// Both types swallow backing-store failures and log them. The revocation
// list fails open (IsRevoked reports false). The refresh store fails closed:
// Fetch reports nothing, so a refresh cannot succeed without the store.
//
// # What this package must NOT do
//
//   - Interpret tokens or decide admission.
//   - Return infrastructure errors to callers.
package session
