package config

import (
	"github.com/w22116972/tokenauth/internal/obs"
	"github.com/w22116972/tokenauth/middleware"
)

type ResourceRateLimit struct {
	API Limit `mapstructure:"api"`
}

// Resource configures the protected resource service.
type Resource struct {
	App         App               `mapstructure:"app"`
	Server      Server            `mapstructure:"server"`
	Log         Log               `mapstructure:"log"`
	JWT         JWT               `mapstructure:"jwt"`
	Store       Store             `mapstructure:"store"`
	Redis       Redis             `mapstructure:"redis"`
	RateLimit   ResourceRateLimit `mapstructure:"ratelimit"`
	Cookie      Cookie            `mapstructure:"cookie"`
	PublicPaths []string          `mapstructure:"public_paths"`
	CORS        CORS              `mapstructure:"cors"`
}

func (c *Resource) LogConfig() obs.LogConfig { return logConfig(c.Log, c.App) }

// LoadResource reads the resource service configuration.
func LoadResource(path string) (*Resource, error) {
	v := newViper(path)
	setCommonDefaults(v, "resource-service", ":8082")

	v.SetDefault("ratelimit.api.max", 100)
	v.SetDefault("ratelimit.api.window", "60s")
	v.SetDefault("public_paths", middleware.DefaultPublicPaths)

	var cfg Resource
	if err := finish(v, &cfg); err != nil {
		return nil, err
	}
	if err := validateCommon(cfg.Server, cfg.JWT, cfg.Store); err != nil {
		return nil, err
	}
	return &cfg, nil
}
