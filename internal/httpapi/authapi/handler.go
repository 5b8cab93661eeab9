// Package authapi serves the /auth/* REST surface of the auth service.
package authapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/w22116972/tokenauth"
	"github.com/w22116972/tokenauth/internal/httpapi"
	"github.com/w22116972/tokenauth/internal/obs"
	"github.com/w22116972/tokenauth/middleware"
	"github.com/w22116972/tokenauth/password"
	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgTooManyLogins      = "Too many login attempts. Please try again later."
	msgEmailRegistered    = "Email already registered"
	msgInvalidEmail       = "Invalid email"
	msgInvalidRequest     = "Invalid request"
	msgRefreshRequired    = "Username and refresh token are required"
	msgInvalidRefresh     = "Invalid refresh token"
	msgUnavailable        = "Service temporarily unavailable"
	msgInternal           = "Internal server error"
)

// Authority is the session authority behind the handlers.
type Authority interface {
	Login(ctx context.Context, email, pw string) (tokenauth.LoginResult, error)
	Register(ctx context.Context, email, pw string) (tokenauth.LoginResult, error)
	Logout(ctx context.Context, accessToken string)
	Refresh(ctx context.Context, principal, credential string) (tokenauth.LoginResult, error)
	ValidateLocally(ctx context.Context, accessToken string) (tokenauth.Claims, error)
	AccessTTL() time.Duration
	Ping(ctx context.Context) error
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Username     string `json:"username" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

type validateResponse struct {
	Valid    bool    `json:"valid"`
	Username *string `json:"username"`
}

// Handler implements the auth endpoints.
type Handler struct {
	auth         Authority
	cookieName   string
	cookieSecure bool
	ips          middleware.IPResolver
	log          *zap.Logger
}

// NewHandler returns a Handler. An empty cookieName selects "token".
func NewHandler(auth Authority, cookieName string, cookieSecure bool, logger *zap.Logger) *Handler {
	if cookieName == "" {
		cookieName = middleware.DefaultCookieName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{auth: auth, cookieName: cookieName, cookieSecure: cookieSecure, log: logger}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	ctx := tokenauth.WithClientIP(r.Context(), h.ips.ClientIP(r))
	res, err := h.auth.Login(ctx, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, tokenauth.ErrLoginRateLimited):
		httpapi.WriteError(w, http.StatusTooManyRequests, msgTooManyLogins)
		return
	case errors.Is(err, tokenauth.ErrInvalidCredentials):
		httpapi.WriteError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	default:
		h.writeInfraError(w, "login", err)
		return
	}

	h.setTokenCookie(w, res.AccessToken)
	httpapi.WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	ctx := tokenauth.WithClientIP(r.Context(), h.ips.ClientIP(r))
	res, err := h.auth.Register(ctx, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, tokenauth.ErrPasswordPolicy):
		httpapi.WriteError(w, http.StatusBadRequest, password.PolicyMessage)
		return
	case errors.Is(err, tokenauth.ErrAccountExists):
		httpapi.WriteError(w, http.StatusBadRequest, msgEmailRegistered)
		return
	case errors.Is(err, tokenauth.ErrInvalidEmail):
		httpapi.WriteError(w, http.StatusBadRequest, msgInvalidEmail)
		return
	default:
		h.writeInfraError(w, "register", err)
		return
	}

	h.setTokenCookie(w, res.AccessToken)
	httpapi.WriteJSON(w, http.StatusCreated, toAuthResponse(res))
}

// Logout always answers 200 and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := tokenauth.WithClientIP(r.Context(), h.ips.ClientIP(r))
	h.auth.Logout(ctx, middleware.TokenFromRequest(r, h.cookieName))

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpapi.NoCache(w)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	_ = httpapi.Decode(r, &req)

	claims, err := h.auth.ValidateLocally(r.Context(), req.Token)
	if err != nil {
		httpapi.WriteJSON(w, http.StatusUnauthorized, validateResponse{Valid: false})
		return
	}
	username := claims.Subject
	httpapi.WriteJSON(w, http.StatusOK, validateResponse{Valid: true, Username: &username})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, msgRefreshRequired)
		return
	}

	ctx := tokenauth.WithClientIP(r.Context(), h.ips.ClientIP(r))
	res, err := h.auth.Refresh(ctx, req.Username, req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, tokenauth.ErrRefreshMissing),
		errors.Is(err, tokenauth.ErrRefreshMismatch),
		errors.Is(err, tokenauth.ErrUserNotFound):
		httpapi.WriteError(w, http.StatusUnauthorized, msgInvalidRefresh)
		return
	default:
		h.writeInfraError(w, "refresh", err)
		return
	}

	h.setTokenCookie(w, res.AccessToken)
	httpapi.WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, obs.Health(h.auth.Ping))
}

func (h *Handler) writeInfraError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, tokenauth.ErrUserStoreUnavailable) {
		h.log.Warn(op+" degraded", zap.Error(err))
		httpapi.WriteError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	h.log.Error(op+" failed", zap.Error(err))
	httpapi.WriteError(w, http.StatusInternalServerError, msgInternal)
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.AccessTTL() / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func toAuthResponse(res tokenauth.LoginResult) authResponse {
	return authResponse{
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		Email:        res.Email,
		Role:         string(res.Role),
	}
}
