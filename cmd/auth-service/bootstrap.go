package main

import (
	"context"
	"fmt"

	"github.com/w22116972/tokenauth"
	"github.com/w22116972/tokenauth/internal/config"
	"github.com/w22116972/tokenauth/internal/ttlstore"
	"github.com/w22116972/tokenauth/internal/userstore"
	"go.uber.org/zap"
)

func initStore(sc config.Store, rc config.Redis) (ttlstore.Store, func(), error) {
	if sc.Backend != ttlstore.BackendRedis {
		store, err := ttlstore.Open(sc.Backend, nil, rc.Timeout)
		return store, func() {}, err
	}
	client := ttlstore.NewRedisClient(rc.Addr, rc.Password, rc.DB, rc.Timeout)
	store, err := ttlstore.Open(sc.Backend, client, rc.Timeout)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}

// initUsers opens Postgres when a DSN is configured and falls back to the
// in-process provider otherwise.
func initUsers(ctx context.Context, dc config.DB, logger *zap.Logger) (tokenauth.UserProvider, func(), error) {
	if dc.DSN == "" {
		logger.Warn("db.dsn empty, using in-memory user store")
		return userstore.NewMemory(), func() {}, nil
	}
	if dc.Migrate {
		if err := userstore.Migrate(ctx, dc.DSN); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	pg, err := userstore.OpenPostgres(ctx, userstore.PostgresConfig{
		DSN:          dc.DSN,
		MaxConns:     dc.MaxConns,
		MinConns:     dc.MinConns,
		QueryTimeout: dc.QueryTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func buildAuthority(cfg *config.Auth, store ttlstore.Store, users tokenauth.UserProvider, logger *zap.Logger) (*tokenauth.Authority, error) {
	secret, err := cfg.JWT.SecretBytes()
	if err != nil {
		return nil, err
	}

	ac := tokenauth.DefaultConfig()
	ac.JWT.Secret = secret
	ac.JWT.Issuer = cfg.JWT.Issuer
	ac.JWT.AccessTTL = cfg.JWT.AccessTTL
	ac.Refresh.TTL = cfg.Refresh.TTL
	ac.RateLimit.MaxLoginAttempts = cfg.RateLimit.Login.Max
	ac.RateLimit.LoginWindow = cfg.RateLimit.Login.Window
	ac.Metrics.Enabled = cfg.Metrics.Enabled

	return tokenauth.New().
		WithConfig(ac).
		WithStore(store).
		WithUserProvider(users).
		WithAuditSink(tokenauth.NewZapSink(logger)).
		WithLogger(logger).
		Build()
}
