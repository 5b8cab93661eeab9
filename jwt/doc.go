// Package jwt issues and verifies the HS256 access tokens shared by the auth
// and resource services.
//
// Every token carries sub, role, iat, exp and a random jti (the tid). Decode
// reports one of ErrMalformed, ErrBadSignature or ErrExpired. Extract reads a
// single claim without verification and never fails, for callers that only
// need the tid.
package jwt
