// Package resourceapi serves the protected resource service. Every request
// outside /healthz and /metrics runs the admission pipeline: rate limit,
// public-path skip, revocation check, structural check, authentication.
package resourceapi

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/w22116972/tokenauth/internal/httpapi"
	"github.com/w22116972/tokenauth/internal/obs"
	"github.com/w22116972/tokenauth/middleware"
	"github.com/w22116972/tokenauth/remote"
	"go.uber.org/zap"
)

const RoleAdmin = "ADMIN"

type Options struct {
	Codec       middleware.Decoder
	Revocations remote.RevocationChecker
	Limiter     middleware.Limiter

	RateLimitMax    int
	RateLimitWindow time.Duration

	CookieName     string
	PublicPaths    []string
	AllowedOrigins []string
	TrustedProxies []netip.Prefix

	Ping           func(context.Context) error
	Logger         *zap.Logger
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
}

type meResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// NewRouter builds the resource service handler.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RateLimitMax <= 0 {
		opts.RateLimitMax = 100
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}
	if opts.PublicPaths == nil {
		opts.PublicPaths = middleware.DefaultPublicPaths
	}

	var checks []middleware.Check
	if opts.Limiter != nil {
		checks = append(checks, middleware.RateLimit(opts.Limiter, opts.RateLimitMax, opts.RateLimitWindow, middleware.IPResolver{TrustedProxies: opts.TrustedProxies}))
	}
	checks = append(checks, middleware.PublicPaths(opts.PublicPaths...))
	if opts.Revocations != nil {
		checks = append(checks, middleware.Revocation(remote.NewValidator(opts.Revocations, logger.Named("remote")), opts.CookieName))
	}
	checks = append(checks,
		middleware.Structural(opts.Codec, opts.CookieName, logger),
		middleware.RequirePrincipal(),
	)
	pipeline := middleware.NewPipeline(logger.Named("admission"), checks...)
	adminOnly := middleware.NewPipeline(logger.Named("admission"), middleware.RequireRole(RoleAdmin))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if opts.HTTPMetrics != nil {
		r.Use(opts.HTTPMetrics.Middleware)
	}
	r.Use(obs.AccessLog(logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(httpapi.CORS(opts.AllowedOrigins))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpapi.WriteJSON(w, http.StatusOK, obs.Health(opts.Ping))
	})
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(pipeline.Middleware)

		r.Get("/api/public/ping", func(w http.ResponseWriter, _ *http.Request) {
			httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/api/me", me)
		r.With(adminOnly.Middleware).Get("/api/admin/ping", func(w http.ResponseWriter, req *http.Request) {
			p, _ := middleware.PrincipalFromContext(req.Context())
			httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "admin": p.Subject})
		})
	})

	return r
}

func me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, middleware.MessageUnauthenticated)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, meResponse{Username: p.Subject, Role: p.Role})
}
