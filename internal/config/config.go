// Package config loads service configuration with viper: an optional YAML
// file, defaults for every key, and environment overrides where "." in a
// key becomes "_" (JWT_SECRET, REDIS_ADDR, ...).
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/w22116972/tokenauth/internal/obs"
	"github.com/w22116972/tokenauth/middleware"
)

var (
	ErrSecretRequired = errors.New("config: jwt.secret is required")
	ErrSecretEncoding = errors.New("config: jwt.secret must be base64")
	ErrStoreBackend   = errors.New("config: store.backend must be redis or memory")
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`

	// TrustedProxies lists the peers whose X-Forwarded-For is believed.
	// Empty trusts every peer.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Proxies parses TrustedProxies.
func (s Server) Proxies() ([]netip.Prefix, error) {
	return middleware.ParseTrustedProxies(s.TrustedProxies)
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type JWT struct {
	Secret    string        `mapstructure:"secret"`
	Issuer    string        `mapstructure:"issuer"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

// SecretBytes decodes the base64 signing key.
func (j JWT) SecretBytes() ([]byte, error) {
	if strings.TrimSpace(j.Secret) == "" {
		return nil, ErrSecretRequired
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(j.Secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretEncoding, err)
	}
	return b, nil
}

type Store struct {
	Backend string `mapstructure:"backend"`
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Limit struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

type Cookie struct {
	Name   string `mapstructure:"name"`
	Secure bool   `mapstructure:"secure"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}
	return v
}

func setCommonDefaults(v *viper.Viper, name, addr string) {
	v.SetDefault("app.name", name)
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")
	v.SetDefault("server.http_addr", addr)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("store.backend", "redis")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", "2s")

	v.SetDefault("cookie.name", "token")
	v.SetDefault("cookie.secure", false)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:8080"})
}

func finish(v *viper.Viper, out any) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v.Unmarshal(out)
}

func validateCommon(srv Server, j JWT, s Store) error {
	if _, err := j.SecretBytes(); err != nil {
		return err
	}
	if _, err := srv.Proxies(); err != nil {
		return fmt.Errorf("config: server.trusted_proxies: %w", err)
	}
	switch s.Backend {
	case "redis", "memory":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrStoreBackend, s.Backend)
	}
}

func logConfig(l Log, a App) obs.LogConfig {
	return obs.LogConfig{
		Level:  l.Level,
		Pretty: l.Pretty,
		App:    a.Name,
		Env:    a.Env,
		Ver:    a.Version,
	}
}
