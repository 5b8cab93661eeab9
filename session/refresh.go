package session

import (
	"context"
	"errors"
	"time"

	"github.com/w22116972/tokenauth/internal/ttlstore"
	"go.uber.org/zap"
)

// DefaultRefreshTTL is the lifetime of a stored refresh credential.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// RefreshStore maps a principal to its single live refresh credential.
type RefreshStore struct {
	store ttlstore.Store
	log   *zap.Logger
}

// NewRefreshStore returns a store backed by store.
func NewRefreshStore(store ttlstore.Store, logger *zap.Logger) *RefreshStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshStore{store: store, log: logger}
}

// Store overwrites the credential for principal. Overwriting is the rotation
// primitive: whatever was stored before is no longer accepted.
func (s *RefreshStore) Store(ctx context.Context, principal, credential string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	if err := s.store.Set(ctx, RefreshKey(principal), credential, ttl); err != nil {
		s.log.Warn("refresh credential not stored, store unavailable",
			zap.String("principal", principal),
			zap.Error(err),
		)
	}
}

// Fetch returns the stored credential. The second result is false when none
// is stored, it expired, or the store is unreachable.
func (s *RefreshStore) Fetch(ctx context.Context, principal string) (string, bool) {
	credential, err := s.store.Get(ctx, RefreshKey(principal))
	if err != nil {
		if !errors.Is(err, ttlstore.ErrNotFound) {
			s.log.Warn("refresh credential unreadable, store unavailable",
				zap.String("principal", principal),
				zap.Error(err),
			)
		}
		return "", false
	}
	return credential, true
}

// Delete removes the credential for principal. It is idempotent.
func (s *RefreshStore) Delete(ctx context.Context, principal string) {
	if err := s.store.Del(ctx, RefreshKey(principal)); err != nil {
		s.log.Warn("refresh credential not deleted, store unavailable",
			zap.String("principal", principal),
			zap.Error(err),
		)
	}
}
