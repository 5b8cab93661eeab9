package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/w22116972/tokenauth/internal/config"
	"github.com/w22116972/tokenauth/internal/obs"
	"go.uber.org/zap"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAuth(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger, err := obs.NewLogger(cfg.LogConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting auth-service", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	store, closeStore, err := initStore(cfg.Store, cfg.Redis)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer closeStore()

	users, closeUsers, err := initUsers(rootCtx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("user store init", zap.Error(err))
	}
	defer closeUsers()

	auth, err := buildAuthority(cfg, store, users, logger)
	if err != nil {
		logger.Fatal("build authority", zap.Error(err))
	}

	created, err := auth.EnsureAdmin(rootCtx, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		logger.Error("admin seed failed", zap.Error(err))
	} else if created {
		logger.Info("admin account created", zap.String("email", cfg.Admin.Email))
	}
	logger.Info("security report", zap.Any("report", auth.SecurityReport()))

	httpSrv, shutdownMetrics, err := buildHTTPServer(cfg, auth, logger)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		httpErrCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	logger.Info("bye")
}
