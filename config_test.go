package tokenauth

import (
	"testing"
	"time"

	"github.com/w22116972/tokenauth/internal/ttlstore"
)

func TestDefaultConfigRequiresSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without secret")
	}
	cfg.JWT.Secret = []byte(testSecret)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with secret: %v", err)
	}
	if cfg.JWT.AccessTTL != 10*time.Hour || cfg.Refresh.TTL != 7*24*time.Hour {
		t.Fatalf("unexpected lifetimes %v %v", cfg.JWT.AccessTTL, cfg.Refresh.TTL)
	}
	if cfg.RateLimit.MaxLoginAttempts != 5 || cfg.RateLimit.LoginWindow != time.Minute {
		t.Fatalf("unexpected login limit %+v", cfg.RateLimit)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"short secret":      func(c *Config) { c.JWT.Secret = []byte("short") },
		"zero access ttl":   func(c *Config) { c.JWT.AccessTTL = 0 },
		"negative leeway":   func(c *Config) { c.JWT.Leeway = -time.Second },
		"zero refresh ttl":  func(c *Config) { c.Refresh.TTL = 0 },
		"refresh < access":  func(c *Config) { c.Refresh.TTL = time.Minute },
		"zero max attempts": func(c *Config) { c.RateLimit.MaxLoginAttempts = 0 },
		"zero window":       func(c *Config) { c.RateLimit.LoginWindow = 0 },
		"unknown role":      func(c *Config) { c.Account.DefaultRole = "ROOT" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWithConfigCopiesSecret(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.JWT.Secret[0] = 'X'
	if b.config.JWT.Secret[0] != testSecret[0] {
		t.Fatal("builder must not alias the caller's secret")
	}
}

func TestBuilderRequirements(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).WithStore(ttlstore.NewMemory()).Build(); err == nil {
		t.Fatal("expected error without user provider")
	}
	if _, err := New().WithConfig(testConfig()).WithUserProvider(newMemUsers()).Build(); err == nil {
		t.Fatal("expected error without store")
	}

	b := New().WithConfig(testConfig()).WithStore(ttlstore.NewMemory()).WithUserProvider(newMemUsers())
	if _, err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestBuilderInProcessStoreServesAllCapabilities(t *testing.T) {
	store := ttlstore.NewMemory()
	users := newMemUsers()
	auth, err := New().WithConfig(testConfig()).WithStore(store).WithUserProvider(users).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := auth.EnsureAdmin(t.Context(), "admin@example.com", "password123"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := auth.Login(t.Context(), "admin@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	auth.Logout(t.Context(), res.AccessToken)
	if _, err := auth.ValidateLocally(t.Context(), res.AccessToken); err == nil {
		t.Fatal("expected revoked token to be rejected")
	}
	if store.Len() != 1 {
		t.Fatalf("expected only the revocation entry, got %d entries", store.Len())
	}
	if auth.SecurityReport().SharedStore {
		t.Fatal("in-process store reported as shared")
	}
}
