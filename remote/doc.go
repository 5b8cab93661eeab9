// Package remote is the revocation gate run by services that accept access
// tokens but do not issue them.
//
// [Validator.Inspect] reads the token's tid without verifying the signature
// and consults the shared revocation list. It never decides that a token is
// authentic: signature and expiry are checked by a separate structural check
// holding the shared signing key, so both services reach the same decision
// from the same key and the same store.
//
// # What this package must NOT do
//
//   - Write to the revocation list or the refresh store.
//   - Verify signatures.
//   - Call the auth service.
package remote
