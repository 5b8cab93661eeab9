package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/w22116972/tokenauth"
	"github.com/w22116972/tokenauth/internal/config"
	"github.com/w22116972/tokenauth/internal/httpapi/authapi"
	"github.com/w22116972/tokenauth/internal/obs"
	otelexport "github.com/w22116972/tokenauth/metrics/export/otel"
	promexport "github.com/w22116972/tokenauth/metrics/export/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Auth, auth *tokenauth.Authority, logger *zap.Logger) (*http.Server, func(context.Context) error, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(auth),
	)

	handlerOpts := []otelhttp.Option{}
	shutdown := func(context.Context) error { return nil }
	if cfg.Metrics.OTel {
		// TODO: attach an OTLP reader once an exporter module is added to go.mod.
		provider := sdkmetric.NewMeterProvider()
		exp, err := otelexport.NewExporter(provider.Meter("tokenauth"), auth)
		if err != nil {
			return nil, nil, err
		}
		handlerOpts = append(handlerOpts, otelhttp.WithMeterProvider(provider))
		shutdown = func(ctx context.Context) error {
			_ = exp.Close()
			return provider.Shutdown(ctx)
		}
	}

	proxies, err := cfg.Server.Proxies()
	if err != nil {
		return nil, nil, err
	}
	router := authapi.NewRouter(auth, authapi.Options{
		CookieName:     cfg.Cookie.Name,
		CookieSecure:   cfg.Cookie.Secure,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: proxies,
		Logger:         logger,
		HTTPMetrics:    obs.NewHTTPMetrics(reg, cfg.App.Name),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.App.Name, handlerOpts...),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, shutdown, nil
}
