package tokenauth

import (
	"context"
	"time"
)

// Role is the coarse authorization level carried in access tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserRecord is the account shape the authority reads from a [UserProvider].
type UserRecord struct {
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// UserProvider is the external user store. Lookups are by normalized email.
//
// GetUserByIdentifier must return an error wrapping [ErrUserNotFound] for an
// unknown email, and CreateUser an error wrapping [ErrAccountExists] for a
// duplicate. Any other error is treated as the provider being unavailable.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, email string) (UserRecord, error)
	CreateUser(ctx context.Context, user UserRecord) (UserRecord, error)
}

// RevocationStore records revoked token ids. Revoke reports whether an
// entry was written; IsRevoked fails open.
type RevocationStore interface {
	Revoke(ctx context.Context, tid string, ttl time.Duration) bool
	IsRevoked(ctx context.Context, tid string) bool
}

// RefreshStore maps each principal to its single live refresh credential.
// Fetch reports false when the store is unreachable.
type RefreshStore interface {
	Store(ctx context.Context, principal, credential string, ttl time.Duration)
	Fetch(ctx context.Context, principal string) (string, bool)
	Delete(ctx context.Context, principal string)
}

// RateLimiter counts attempts per identity within a window. Both methods
// fail open.
type RateLimiter interface {
	Increment(ctx context.Context, identity string, window time.Duration, ceiling int) int64
	IsExceeded(ctx context.Context, identity string, ceiling int) bool
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// LoginResult is returned by [Authority.Login] and [Authority.Refresh].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Email        string
	Role         Role
}

// Claims is the verified content of an access token.
type Claims struct {
	TID       string
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
