package ttlstore

import (
	"context"
	"time"
)

// Unavailable is the "no backing store" variant. Every call returns
// ErrUnavailable, which pushes callers onto their degradation path.
type Unavailable struct{}

func (Unavailable) Set(context.Context, string, string, time.Duration) error {
	return ErrUnavailable
}

func (Unavailable) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, ErrUnavailable
}

func (Unavailable) Get(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Exists(context.Context, string) (bool, error) {
	return false, ErrUnavailable
}

func (Unavailable) Del(context.Context, string) error {
	return ErrUnavailable
}

func (Unavailable) IncrWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, ErrUnavailable
}

func (Unavailable) TTL(context.Context, string) (time.Duration, error) {
	return 0, ErrUnavailable
}

func (Unavailable) Ping(context.Context) error {
	return ErrUnavailable
}
