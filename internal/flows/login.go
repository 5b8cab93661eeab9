package flows

import (
	"context"
	"errors"
	"time"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureUserStore
	LoginFailureIssueAccess
	LoginFailureCredential
)

// LoginResult carries the issued pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Identity     string
	Email        string
	Role         string
	AccessToken  string
	RefreshToken string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	MaxAttempts int
	Window      time.Duration
	RefreshTTL  time.Duration

	// DummyHash is verified against when the account does not exist so both
	// failure paths cost one hash verification.
	DummyHash string

	ClientIPFromContext     func(context.Context) string
	GetUserByIdentifier     func(context.Context, string) (UserRecord, error)
	VerifyPassword          func(password, encodedHash string) (bool, error)
	IssueAccessToken        func(subject, role string) (string, error)
	NewRefreshCredential    func() (string, error)
	DigestRefreshCredential func(string) string

	RateLimiter  RateLimiter
	RefreshStore RefreshStore
	UserNotFound error
}

// LoginIdentity is the rate-limit identity charged for failed logins from ip.
func LoginIdentity(ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return "login:" + ip
}

// RunLogin checks the caller's budget, verifies credentials, then issues an
// access token and stores a fresh refresh credential. Only credential
// failures are charged to the rate limiter.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	identity := LoginIdentity(clientIP(ctx, deps.ClientIPFromContext))
	email = NormalizeEmail(email)

	if deps.RateLimiter != nil && deps.RateLimiter.IsExceeded(ctx, identity, deps.MaxAttempts) {
		return LoginResult{Failure: LoginFailureRateLimited, Identity: identity, Email: email}
	}

	user, err := deps.GetUserByIdentifier(ctx, email)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			if deps.DummyHash != "" {
				_, _ = deps.VerifyPassword(password, deps.DummyHash)
			}
			chargeLogin(ctx, identity, deps)
			return LoginResult{Failure: LoginFailureInvalidCredentials, Err: err, Identity: identity, Email: email}
		}
		return LoginResult{Failure: LoginFailureUserStore, Err: err, Identity: identity, Email: email}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		chargeLogin(ctx, identity, deps)
		return LoginResult{Failure: LoginFailureInvalidCredentials, Err: err, Identity: identity, Email: email}
	}

	access, err := deps.IssueAccessToken(user.Email, user.Role)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueAccess, Err: err, Identity: identity, Email: user.Email}
	}

	refresh, err := deps.NewRefreshCredential()
	if err != nil {
		return LoginResult{Failure: LoginFailureCredential, Err: err, Identity: identity, Email: user.Email}
	}
	deps.RefreshStore.Store(ctx, user.Email, deps.DigestRefreshCredential(refresh), deps.RefreshTTL)

	return LoginResult{
		Failure:      LoginFailureNone,
		Identity:     identity,
		Email:        user.Email,
		Role:         user.Role,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

func chargeLogin(ctx context.Context, identity string, deps LoginDeps) {
	if deps.RateLimiter == nil {
		return
	}
	deps.RateLimiter.Increment(ctx, identity, deps.Window, deps.MaxAttempts)
}

func clientIP(ctx context.Context, fn func(context.Context) string) string {
	if fn == nil {
		return ""
	}
	return fn(ctx)
}
