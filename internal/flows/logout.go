package flows

import (
	"context"
	"time"

	"github.com/w22116972/tokenauth/jwt"
)

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	DecodeIgnoringExpiry func(string) (*jwt.Claims, error)
	Now                  func() time.Time
	Revocations          RevocationStore
	RefreshStore         RefreshStore
}

// LogoutResult reports what logout touched. Revoked is set only when this
// call wrote the revocation entry. Err is informational only; logout always
// succeeds from the caller's point of view.
type LogoutResult struct {
	TID       string
	Principal string
	TTL       time.Duration
	Revoked   bool
	Err       error
}

// RunLogout revokes the token's tid for its remaining lifetime and deletes
// the subject's refresh credential. Tokens that fail signature verification
// touch nothing.
func RunLogout(ctx context.Context, tokenStr string, deps LogoutDeps) LogoutResult {
	if tokenStr == "" {
		return LogoutResult{}
	}

	claims, err := deps.DecodeIgnoringExpiry(tokenStr)
	if err != nil {
		return LogoutResult{Err: err}
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	result := LogoutResult{TID: claims.TID(), Principal: claims.Subject}
	if result.TID != "" {
		result.TTL = RevocationTTL(claims.ExpiresAtTime(), now())
		result.Revoked = deps.Revocations.Revoke(ctx, result.TID, result.TTL)
	}
	if result.Principal != "" {
		deps.RefreshStore.Delete(ctx, result.Principal)
	}
	return result
}

// RevocationTTL returns how long a revocation entry must live to outlast a
// token expiring at exp: the remaining lifetime rounded up to whole seconds
// plus one second. It is zero when exp is unset or already passed.
func RevocationTTL(exp, now time.Time) time.Duration {
	if exp.IsZero() || !exp.After(now) {
		return 0
	}
	remaining := exp.Sub(now)
	rounded := remaining.Truncate(time.Second)
	if rounded < remaining {
		rounded += time.Second
	}
	return rounded + time.Second
}
