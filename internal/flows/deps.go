package flows

import (
	"context"
	"strings"
	"time"
)

// UserRecord is the flow-local view of an account.
type UserRecord struct {
	Email        string
	PasswordHash string
	Role         string
}

// RateLimiter is the attempt counter used by login.
type RateLimiter interface {
	Increment(ctx context.Context, identity string, window time.Duration, ceiling int) int64
	IsExceeded(ctx context.Context, identity string, ceiling int) bool
}

// RevocationStore records and answers revoked tids.
type RevocationStore interface {
	Revoke(ctx context.Context, tid string, ttl time.Duration) bool
	IsRevoked(ctx context.Context, tid string) bool
}

// RefreshStore holds one refresh credential digest per principal.
type RefreshStore interface {
	Store(ctx context.Context, principal, credential string, ttl time.Duration)
	Fetch(ctx context.Context, principal string) (string, bool)
	Delete(ctx context.Context, principal string)
}

// Deps groups flow dependency sets. The root Authority builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Login    LoginDeps
	Register RegisterDeps
	Logout   LogoutDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
}

// NormalizeEmail trims and lower-cases an email so it can be used as the
// principal key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
