package tokenauth

import "errors"

var (
	// ErrInvalidCredentials is returned for any failed login, whether the
	// account is unknown or the password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrLoginRateLimited is returned when the caller's failed-login budget
	// for the current window is spent.
	ErrLoginRateLimited = errors.New("too many login attempts")

	// ErrRefreshMissing means no refresh credential is stored for the
	// principal: never issued, expired, logged out, or store unreachable.
	ErrRefreshMissing = errors.New("refresh credential not found")
	// ErrRefreshMismatch means the supplied credential is not the stored one,
	// typically a replay of a rotated-out credential.
	ErrRefreshMismatch = errors.New("refresh credential mismatch")
	// ErrUserNotFound is returned when a principal no longer exists.
	ErrUserNotFound = errors.New("user not found")

	ErrAccountExists  = errors.New("email already registered")
	ErrPasswordPolicy = errors.New("password policy violation")
	ErrInvalidEmail   = errors.New("invalid email")

	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingTID is returned for a verified token that carries no tid.
	ErrMissingTID = errors.New("token has no tid")
	// ErrTokenRevoked is returned for a verified token whose tid is revoked.
	ErrTokenRevoked = errors.New("token has been revoked")

	// ErrUserStoreUnavailable wraps user provider failures other than not
	// found or duplicate.
	ErrUserStoreUnavailable = errors.New("user store unavailable")
	// ErrTokenIssue is returned when signing or credential minting fails.
	ErrTokenIssue = errors.New("token issuance failed")

	ErrAuthorityNotReady = errors.New("authority not initialized")
)
