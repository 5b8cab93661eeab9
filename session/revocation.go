package session

import (
	"context"
	"time"

	"github.com/w22116972/tokenauth/internal/ttlstore"
	"go.uber.org/zap"
)

// RevocationList records revoked tids until the token they protect expires.
type RevocationList struct {
	store ttlstore.Store
	log   *zap.Logger
}

// NewRevocationList returns a list backed by store. A nil logger is replaced
// with a no-op logger.
func NewRevocationList(store ttlstore.Store, logger *zap.Logger) *RevocationList {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationList{store: store, log: logger}
}

// Revoke marks tid as revoked for ttl. Repeated calls for the same tid keep
// the first entry. A non-positive ttl means the token is already expired and
// nothing is written. Store failures are logged and otherwise ignored. The
// result is true only when this call wrote the entry.
func (r *RevocationList) Revoke(ctx context.Context, tid string, ttl time.Duration) bool {
	if tid == "" || ttl <= 0 {
		return false
	}

	written, err := r.store.SetNX(ctx, RevocationKey(tid), revokedMarker, ttl)
	if err != nil {
		r.log.Warn("revocation write skipped, store unavailable",
			zap.String("tid", tid),
			zap.Error(err),
		)
		return false
	}
	if !written {
		r.log.Debug("tid already revoked", zap.String("tid", tid))
		return false
	}
	r.log.Debug("tid revoked", zap.String("tid", tid), zap.Duration("ttl", ttl))
	return true
}

// IsRevoked reports whether tid has a live revocation entry. It fails open:
// an unreachable store reports false.
func (r *RevocationList) IsRevoked(ctx context.Context, tid string) bool {
	if tid == "" {
		return false
	}

	revoked, err := r.store.Exists(ctx, RevocationKey(tid))
	if err != nil {
		r.log.Warn("revocation check skipped, store unavailable",
			zap.String("tid", tid),
			zap.Error(err),
		)
		return false
	}
	return revoked
}

// Ping reports whether the backing store is reachable.
func (r *RevocationList) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
