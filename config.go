package tokenauth

import (
	"errors"
	"time"

	"github.com/w22116972/tokenauth/password"
)

// Config holds the authority's tunables. Build validates it; the zero value
// is not usable, start from [DefaultConfig].
type Config struct {
	JWT       JWTConfig
	Refresh   RefreshConfig
	Password  password.Config
	RateLimit RateLimitConfig
	Account   AccountConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-token signing. Both services must share Secret
// and Issuer.
type JWTConfig struct {
	AccessTTL time.Duration
	Secret    []byte
	Issuer    string
	Leeway    time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig sets the lifetime of stored refresh credentials.
type RefreshConfig struct {
	TTL time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig bounds failed logins per client identity.
type RateLimitConfig struct {
	MaxLoginAttempts int
	LoginWindow      time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration.
type AccountConfig struct {
	DefaultRole Role
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the reference settings: 10 hour access tokens,
// 7 day refresh credentials and 5 failed logins per minute. JWT.Secret must
// still be set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 10 * time.Hour,
		},
		Refresh: RefreshConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Password: password.DefaultConfig(),
		RateLimit: RateLimitConfig{
			MaxLoginAttempts: 5,
			LoginWindow:      time.Minute,
		},
		Account: AccountConfig{
			DefaultRole: RoleUser,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL < c.JWT.AccessTTL {
		return errors.New("Refresh TTL must be >= JWT AccessTTL")
	}

	if c.RateLimit.MaxLoginAttempts <= 0 {
		return errors.New("RateLimit MaxLoginAttempts must be > 0")
	}
	if c.RateLimit.LoginWindow <= 0 {
		return errors.New("RateLimit LoginWindow must be > 0")
	}

	switch c.Account.DefaultRole {
	case RoleUser, RoleAdmin:
	default:
		return errors.New("Account DefaultRole must be USER or ADMIN")
	}

	return nil
}
