package ttlstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps every backend failure, including timeouts.
	ErrUnavailable = errors.New("ttl store unavailable")
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("ttl store key not found")
)

// DefaultTimeout bounds each call when no timeout is configured.
const DefaultTimeout = 2 * time.Second

// Store is a TTL-keyed string store with an atomic windowed counter.
type Store interface {
	// Set writes value under key, replacing any previous value and TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes only when key is absent and reports whether it wrote.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
	// IncrWindow atomically increments the counter at key and arms the TTL to
	// window when the increment starts a new window.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	// TTL reports the remaining lifetime of key, or ErrNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
}
