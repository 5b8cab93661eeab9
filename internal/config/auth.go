package config

import (
	"time"

	"github.com/w22116972/tokenauth/internal/obs"
)

type Refresh struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type AuthRateLimit struct {
	Login Limit `mapstructure:"login"`
}

type DB struct {
	DSN          string        `mapstructure:"dsn"`
	Migrate      bool          `mapstructure:"migrate"`
	MaxConns     int32         `mapstructure:"max_conns"`
	MinConns     int32         `mapstructure:"min_conns"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type Admin struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
	OTel    bool `mapstructure:"otel"`
}

// Auth configures the auth service.
type Auth struct {
	App       App           `mapstructure:"app"`
	Server    Server        `mapstructure:"server"`
	Log       Log           `mapstructure:"log"`
	JWT       JWT           `mapstructure:"jwt"`
	Refresh   Refresh       `mapstructure:"refresh"`
	Store     Store         `mapstructure:"store"`
	Redis     Redis         `mapstructure:"redis"`
	RateLimit AuthRateLimit `mapstructure:"ratelimit"`
	DB        DB            `mapstructure:"db"`
	Admin     Admin         `mapstructure:"admin"`
	Cookie    Cookie        `mapstructure:"cookie"`
	CORS      CORS          `mapstructure:"cors"`
	Metrics   Metrics       `mapstructure:"metrics"`
}

func (c *Auth) LogConfig() obs.LogConfig { return logConfig(c.Log, c.App) }

// LoadAuth reads the auth service configuration. An empty path uses
// defaults and the environment only.
func LoadAuth(path string) (*Auth, error) {
	v := newViper(path)
	setCommonDefaults(v, "auth-service", ":8081")

	v.SetDefault("jwt.access_ttl", "10h")
	v.SetDefault("refresh.ttl", "168h")

	v.SetDefault("ratelimit.login.max", 5)
	v.SetDefault("ratelimit.login.window", "60s")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.migrate", false)
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.query_timeout", "2s")

	v.SetDefault("admin.email", "admin@example.com")
	v.SetDefault("admin.password", "password123")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.otel", false)

	var cfg Auth
	if err := finish(v, &cfg); err != nil {
		return nil, err
	}
	if err := validateCommon(cfg.Server, cfg.JWT, cfg.Store); err != nil {
		return nil, err
	}
	return &cfg, nil
}
