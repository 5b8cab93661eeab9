package authapi

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/w22116972/tokenauth/internal/httpapi"
	"github.com/w22116972/tokenauth/internal/obs"
	"github.com/w22116972/tokenauth/middleware"
	"go.uber.org/zap"
)

// Options configures [NewRouter]. Nil fields are skipped.
type Options struct {
	CookieName     string
	CookieSecure   bool
	AllowedOrigins []string
	TrustedProxies []netip.Prefix
	Logger         *zap.Logger
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
}

// NewRouter mounts the auth endpoints under /auth plus /healthz and,
// when configured, /metrics.
func NewRouter(auth Authority, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := NewHandler(auth, opts.CookieName, opts.CookieSecure, logger.Named("authapi"))
	h.ips = middleware.IPResolver{TrustedProxies: opts.TrustedProxies}

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

	r.Get("/healthz", h.Health)
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)
		r.Post("/validate", h.Validate)
		r.Post("/refresh", h.Refresh)
	})

	return r
}
