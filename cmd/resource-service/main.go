package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/w22116972/tokenauth/internal/config"
	"github.com/w22116972/tokenauth/internal/httpapi/resourceapi"
	"github.com/w22116972/tokenauth/internal/obs"
	"github.com/w22116972/tokenauth/internal/rate"
	"github.com/w22116972/tokenauth/internal/ttlstore"
	"github.com/w22116972/tokenauth/jwt"
	"github.com/w22116972/tokenauth/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadResource(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger, err := obs.NewLogger(cfg.LogConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting resource-service", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	store, closeStore, err := initStore(cfg.Store, cfg.Redis)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer closeStore()

	secret, err := cfg.JWT.SecretBytes()
	if err != nil {
		logger.Fatal("jwt secret", zap.Error(err))
	}
	// The resource service never issues; AccessTTL only satisfies validation.
	codec, err := jwt.NewManager(jwt.Config{AccessTTL: time.Hour, Secret: secret, Issuer: cfg.JWT.Issuer})
	if err != nil {
		logger.Fatal("jwt codec", zap.Error(err))
	}

	proxies, err := cfg.Server.Proxies()
	if err != nil {
		logger.Fatal("trusted proxies", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := resourceapi.NewRouter(resourceapi.Options{
		Codec:           codec,
		Revocations:     session.NewRevocationList(store, logger.Named("revocation")),
		Limiter:         rate.New(store, logger.Named("ratelimit")),
		RateLimitMax:    cfg.RateLimit.API.Max,
		RateLimitWindow: cfg.RateLimit.API.Window,
		CookieName:      cfg.Cookie.Name,
		PublicPaths:     cfg.PublicPaths,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		TrustedProxies:  proxies,
		Ping:            store.Ping,
		Logger:          logger,
		HTTPMetrics:     obs.NewHTTPMetrics(reg, cfg.App.Name),
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.App.Name),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

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
