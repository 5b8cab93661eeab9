package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/w22116972/tokenauth/jwt"
	"github.com/w22116972/tokenauth/remote"
	"go.uber.org/zap"
)

const (
	MessageTooManyRequests = "Too many requests. Please try again later."
	MessageInvalidToken    = "Invalid or expired token"
	MessageUnauthenticated = "Authentication required"
	MessageForbidden       = "Access denied"
)

// DefaultPublicPaths are admitted without any token checks.
var DefaultPublicPaths = []string{
	"/actuator",
	"/health",
	"/swagger-ui",
	"/v3/api-docs",
	"/api/public",
}

// PublicPaths admits requests whose path starts with one of prefixes.
func PublicPaths(prefixes ...string) Check {
	return CheckFunc(func(r *http.Request) Result {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(r.URL.Path, p) {
				return Allowed()
			}
		}
		return Deferred()
	})
}

// Limiter is the attempt counter behind [RateLimit].
type Limiter interface {
	Increment(ctx context.Context, identity string, window time.Duration, ceiling int) int64
}

// RateLimit charges every request to "api:{client ip}" and rejects once the
// count passes ceiling within window. A failing store admits everything.
func RateLimit(l Limiter, ceiling int, window time.Duration, ips IPResolver) Check {
	return CheckFunc(func(r *http.Request) Result {
		count := l.Increment(r.Context(), "api:"+ips.ClientIP(r), window, ceiling)
		if count > int64(ceiling) {
			return Denied(http.StatusTooManyRequests, MessageTooManyRequests)
		}
		return Deferred()
	})
}

// Revocation denies tokens without a tid or with a revoked tid. Requests
// without a token defer.
func Revocation(v *remote.Validator, cookieName string) Check {
	return CheckFunc(func(r *http.Request) Result {
		d := v.Inspect(r.Context(), TokenFromRequest(r, cookieName))
		if d.Denied() {
			return Denied(http.StatusUnauthorized, d.Message())
		}
		return Deferred()
	})
}

// Decoder verifies a token's signature and expiry.
type Decoder interface {
	Decode(token string) (*jwt.Claims, error)
}

// Structural verifies the presented token and attaches its [Principal].
// Requests without a token defer.
func Structural(d Decoder, cookieName string, logger *zap.Logger) Check {
	if logger == nil {
		logger = zap.NewNop()
	}
	return CheckFunc(func(r *http.Request) Result {
		token := TokenFromRequest(r, cookieName)
		if token == "" {
			return Deferred()
		}
		claims, err := d.Decode(token)
		if err != nil {
			logger.Debug("token rejected", zap.Error(err))
			return Denied(http.StatusUnauthorized, MessageInvalidToken)
		}
		return DeferredWith(WithPrincipal(r.Context(), Principal{
			Subject:   claims.Subject,
			Role:      claims.Role,
			TID:       claims.TID(),
			ExpiresAt: claims.ExpiresAtTime(),
		}))
	})
}

// RequirePrincipal denies requests that reached it unauthenticated.
func RequirePrincipal() Check {
	return CheckFunc(func(r *http.Request) Result {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			return Denied(http.StatusUnauthorized, MessageUnauthenticated)
		}
		return Deferred()
	})
}

// RequireRole denies authenticated callers whose role is not role.
func RequireRole(role string) Check {
	return CheckFunc(func(r *http.Request) Result {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			return Denied(http.StatusUnauthorized, MessageUnauthenticated)
		}
		if p.Role != role {
			return Denied(http.StatusForbidden, MessageForbidden)
		}
		return Deferred()
	})
}
