package rate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/w22116972/tokenauth/internal/ttlstore"
	"go.uber.org/zap"
)

// KeyPrefix namespaces counters in the backing store.
const KeyPrefix = "ratelimit:"

// Policy is a ceiling of attempts per window.
type Policy struct {
	Ceiling int
	Window  time.Duration
}

var (
	// DefaultLoginPolicy allows 5 failed logins per minute.
	DefaultLoginPolicy = Policy{Ceiling: 5, Window: time.Minute}
	// DefaultAPIPolicy allows 100 requests per minute.
	DefaultAPIPolicy = Policy{Ceiling: 100, Window: time.Minute}
)

// Limiter counts attempts per identity. Whether the counts are shared across
// instances depends only on the injected store.
type Limiter struct {
	store ttlstore.Store
	log   *zap.Logger
}

// New creates a [Limiter] over store.
func New(store ttlstore.Store, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: store, log: logger}
}

func key(identity string) string {
	return KeyPrefix + identity
}

// Increment charges one attempt to identity and returns the count within the
// current window. The first attempt of a window arms its TTL. Store failures
// return 0.
func (l *Limiter) Increment(ctx context.Context, identity string, window time.Duration, ceiling int) int64 {
	count, err := l.store.IncrWindow(ctx, key(identity), window)
	if err != nil {
		l.log.Warn("rate limit increment skipped, store unavailable",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return 0
	}
	if count > int64(ceiling) {
		l.log.Debug("rate limit ceiling passed",
			zap.String("identity", identity),
			zap.Int64("count", count),
			zap.Int("ceiling", ceiling),
		)
	}
	return count
}

// IsExceeded reports, without charging, whether identity has used its whole
// budget: one more attempt would push the count past ceiling. Store failures
// report false.
func (l *Limiter) IsExceeded(ctx context.Context, identity string, ceiling int) bool {
	raw, err := l.store.Get(ctx, key(identity))
	if err != nil {
		if !errors.Is(err, ttlstore.ErrNotFound) {
			l.log.Warn("rate limit check skipped, store unavailable",
				zap.String("identity", identity),
				zap.Error(err),
			)
		}
		return false
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || count < 0 {
		return false
	}
	return count >= int64(ceiling)
}

// Allow charges one attempt and reports whether it is within the ceiling.
func (l *Limiter) Allow(ctx context.Context, identity string, p Policy) bool {
	return l.Increment(ctx, identity, p.Window, p.Ceiling) <= int64(p.Ceiling)
}

// RetryAfter returns how long until identity's window resets, or 0 when
// unknown.
func (l *Limiter) RetryAfter(ctx context.Context, identity string) time.Duration {
	ttl, err := l.store.TTL(ctx, key(identity))
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

// Reset clears identity's counter.
func (l *Limiter) Reset(ctx context.Context, identity string) {
	if err := l.store.Del(ctx, key(identity)); err != nil {
		l.log.Warn("rate limit reset skipped, store unavailable",
			zap.String("identity", identity),
			zap.Error(err),
		)
	}
}
