package ttlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Open selects a Store implementation by name. client is required for
// BackendRedis and ignored otherwise.
func Open(backend string, client redis.UniversalClient, timeout time.Duration) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendRedis, "":
		if client == nil {
			return nil, fmt.Errorf("backend %q requires a redis client", BackendRedis)
		}
		return NewRedis(client, timeout), nil
	case BackendMemory:
		return NewMemory(), nil
	case BackendNone:
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
