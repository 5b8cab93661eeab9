package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/w22116972/tokenauth/internal/flows"
	"github.com/w22116972/tokenauth/jwt"
	"github.com/w22116972/tokenauth/password"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type resetter interface {
	Reset(ctx context.Context, identity string)
}

type dropCounter interface {
	Dropped() uint64
}

// Authority owns every write to the revocation list and the refresh store.
type Authority struct {
	config      Config
	codec       *jwt.Manager
	users       UserProvider
	revocations RevocationStore
	refresh     RefreshStore
	limiter     RateLimiter
	hasher      PasswordHasher
	dummyHash   string
	pinger      pinger
	sharedStore bool
	audit       AuditSink
	metrics     *Metrics
	log         *zap.Logger
	now         func() time.Time
	flows       flows.Service
}

func (a *Authority) buildFlowDeps() flows.Deps {
	issue := func(subject, role string) (string, error) {
		return a.codec.Issue(subject, role, 0)
	}
	getUser := func(ctx context.Context, email string) (flows.UserRecord, error) {
		u, err := a.users.GetUserByIdentifier(ctx, email)
		if err != nil {
			return flows.UserRecord{}, err
		}
		return flows.UserRecord{Email: u.Email, PasswordHash: u.PasswordHash, Role: string(u.Role)}, nil
	}

	return flows.Deps{
		Login: flows.LoginDeps{
			MaxAttempts:             a.config.RateLimit.MaxLoginAttempts,
			Window:                  a.config.RateLimit.LoginWindow,
			RefreshTTL:              a.config.Refresh.TTL,
			DummyHash:               a.dummyHash,
			ClientIPFromContext:     clientIPFromContext,
			GetUserByIdentifier:     getUser,
			VerifyPassword:          a.hasher.Verify,
			IssueAccessToken:        issue,
			NewRefreshCredential:    flows.NewRefreshCredential,
			DigestRefreshCredential: flows.DigestRefreshCredential,
			RateLimiter:             a.limiter,
			RefreshStore:            a.refresh,
			UserNotFound:            ErrUserNotFound,
		},
		Register: flows.RegisterDeps{
			DefaultRole:      string(a.config.Account.DefaultRole),
			ValidateStrength: password.ValidateStrength,
			HashPassword:     a.hasher.Hash,
			CreateUser: func(ctx context.Context, u flows.UserRecord) (flows.UserRecord, error) {
				created, err := a.users.CreateUser(ctx, UserRecord{
					Email:        u.Email,
					PasswordHash: u.PasswordHash,
					Role:         Role(u.Role),
					CreatedAt:    a.now(),
				})
				if err != nil {
					return flows.UserRecord{}, err
				}
				return flows.UserRecord{Email: created.Email, PasswordHash: created.PasswordHash, Role: string(created.Role)}, nil
			},
			IssueAccessToken: issue,
			AccountExists:    ErrAccountExists,
		},
		Logout: flows.LogoutDeps{
			DecodeIgnoringExpiry: a.codec.DecodeIgnoringExpiry,
			Now:                  a.now,
			Revocations:          a.revocations,
			RefreshStore:         a.refresh,
		},
		Refresh: flows.RefreshDeps{
			RefreshTTL:              a.config.Refresh.TTL,
			GetUserByIdentifier:     getUser,
			IssueAccessToken:        issue,
			NewRefreshCredential:    flows.NewRefreshCredential,
			DigestRefreshCredential: flows.DigestRefreshCredential,
			RefreshStore:            a.refresh,
			UserNotFound:            ErrUserNotFound,
			Logger:                  a.log.Named("refresh"),
		},
		Validate: flows.ValidateDeps{
			Decode:      a.codec.Decode,
			Revocations: a.revocations,
		},
	}
}

// AccessTTL returns the lifetime of issued access tokens.
func (a *Authority) AccessTTL() time.Duration {
	return a.config.JWT.AccessTTL
}

// MetricsSnapshot returns a copy of the authority counters.
func (a *Authority) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

// AuditDropped returns how many audit events the sink discarded, when the
// sink counts drops.
func (a *Authority) AuditDropped() uint64 {
	if a == nil {
		return 0
	}
	if dc, ok := a.audit.(dropCounter); ok {
		return dc.Dropped()
	}
	return 0
}

// Ping reports whether the backing store is reachable. Authorities built
// from individual capabilities without a store always report nil.
func (a *Authority) Ping(ctx context.Context) error {
	if a.pinger == nil {
		return nil
	}
	return a.pinger.Ping(ctx)
}

// Login verifies credentials and returns an access token and a fresh refresh
// credential. Every credential failure yields [ErrInvalidCredentials]. Once
// the caller's identity has spent its failure budget, [ErrLoginRateLimited]
// is returned before any password work.
func (a *Authority) Login(ctx context.Context, email, pw string) (LoginResult, error) {
	if !a.flows.Initialized() {
		return LoginResult{}, ErrAuthorityNotReady
	}

	res := a.flows.Login(ctx, email, pw)
	switch res.Failure {
	case flows.LoginFailureNone:
		a.metrics.Inc(MetricLoginSuccess)
		a.emitAudit(ctx, AuditLoginSuccess, true, res.Email, nil, nil)
		a.log.Debug("login succeeded", zap.String("principal", res.Email))
		return LoginResult{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			Email:        res.Email,
			Role:         Role(res.Role),
		}, nil
	case flows.LoginFailureRateLimited:
		a.metrics.Inc(MetricLoginRateLimited)
		a.emitAudit(ctx, AuditLoginRateLimited, false, res.Email, ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"identity": res.Identity}
		})
		return LoginResult{}, ErrLoginRateLimited
	case flows.LoginFailureInvalidCredentials:
		a.metrics.Inc(MetricLoginFailure)
		a.emitAudit(ctx, AuditLoginFailure, false, res.Email, ErrInvalidCredentials, nil)
		return LoginResult{}, ErrInvalidCredentials
	case flows.LoginFailureUserStore:
		a.metrics.Inc(MetricUserStoreError)
		a.log.Error("login user lookup failed", zap.String("principal", res.Email), zap.Error(res.Err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, res.Err)
	default:
		a.metrics.Inc(MetricLoginFailure)
		a.log.Error("login token issuance failed", zap.String("principal", res.Email), zap.Error(res.Err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrTokenIssue, res.Err)
	}
}

// Register creates a USER account and returns its access token. No refresh
// credential is issued.
func (a *Authority) Register(ctx context.Context, email, pw string) (LoginResult, error) {
	if !a.flows.Initialized() {
		return LoginResult{}, ErrAuthorityNotReady
	}

	res := a.flows.Register(ctx, email, pw)
	switch res.Failure {
	case flows.RegisterFailureNone:
		a.metrics.Inc(MetricRegisterSuccess)
		a.emitAudit(ctx, AuditRegisterSuccess, true, res.Email, nil, nil)
		return LoginResult{AccessToken: res.AccessToken, Email: res.Email, Role: Role(res.Role)}, nil
	case flows.RegisterFailureExists:
		a.metrics.Inc(MetricRegisterDuplicate)
		a.emitAudit(ctx, AuditRegisterFailure, false, res.Email, ErrAccountExists, nil)
		return LoginResult{}, ErrAccountExists
	case flows.RegisterFailurePolicy, flows.RegisterFailureHash:
		a.metrics.Inc(MetricRegisterRejected)
		a.emitAudit(ctx, AuditRegisterFailure, false, res.Email, ErrPasswordPolicy, nil)
		return LoginResult{}, ErrPasswordPolicy
	case flows.RegisterFailureInvalidEmail:
		a.metrics.Inc(MetricRegisterRejected)
		return LoginResult{}, ErrInvalidEmail
	case flows.RegisterFailureUserStore:
		a.metrics.Inc(MetricUserStoreError)
		a.log.Error("register user insert failed", zap.String("principal", res.Email), zap.Error(res.Err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, res.Err)
	default:
		a.log.Error("register token issuance failed", zap.String("principal", res.Email), zap.Error(res.Err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrTokenIssue, res.Err)
	}
}

// Logout revokes the token's tid for its remaining lifetime and deletes the
// principal's refresh credential. It never fails: malformed, forged or
// expired tokens are accepted and simply affect less state.
func (a *Authority) Logout(ctx context.Context, accessToken string) {
	if !a.flows.Initialized() {
		return
	}

	res := a.flows.Logout(ctx, accessToken)
	a.metrics.Inc(MetricLogout)
	if res.Revoked {
		a.metrics.Inc(MetricRevocationWritten)
	}
	if res.Err != nil {
		a.log.Debug("logout with unverifiable token", zap.Error(res.Err))
	}
	a.emitAudit(ctx, AuditLogout, true, res.Principal, nil, func() map[string]string {
		if res.TID == "" {
			return nil
		}
		return map[string]string{"tid": res.TID}
	})
}

// Refresh exchanges the principal's current refresh credential for a new
// access token and a rotated credential. The role is re-read from the user
// store.
func (a *Authority) Refresh(ctx context.Context, principal, credential string) (LoginResult, error) {
	if !a.flows.Initialized() {
		return LoginResult{}, ErrAuthorityNotReady
	}

	res := a.flows.Refresh(ctx, principal, credential)
	switch res.Failure {
	case flows.RefreshFailureNone:
		a.metrics.Inc(MetricRefreshSuccess)
		a.emitAudit(ctx, AuditRefreshSuccess, true, res.Principal, nil, nil)
		return LoginResult{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			Email:        res.Principal,
			Role:         Role(res.Role),
		}, nil
	case flows.RefreshFailureMissing:
		a.metrics.Inc(MetricRefreshMissing)
		a.emitAudit(ctx, AuditRefreshFailure, false, res.Principal, ErrRefreshMissing, nil)
		return LoginResult{}, ErrRefreshMissing
	case flows.RefreshFailureMismatch:
		a.metrics.Inc(MetricRefreshMismatch)
		a.emitAudit(ctx, AuditRefreshReuse, false, res.Principal, ErrRefreshMismatch, nil)
		return LoginResult{}, ErrRefreshMismatch
	case flows.RefreshFailureUserNotFound:
		a.metrics.Inc(MetricRefreshUserNotFound)
		a.emitAudit(ctx, AuditRefreshFailure, false, res.Principal, ErrUserNotFound, nil)
		return LoginResult{}, ErrUserNotFound
	case flows.RefreshFailureUserStore:
		a.metrics.Inc(MetricUserStoreError)
		a.log.Error("refresh user lookup failed", zap.String("principal", res.Principal), zap.Error(res.Err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, res.Err)
	default:
		a.log.Error("refresh token issuance failed", zap.String("principal", res.Principal), zap.Error(res.Err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrTokenIssue, res.Err)
	}
}

// ValidateLocally verifies signature and expiry, then checks the revocation
// list. Revocation lookups fail open.
func (a *Authority) ValidateLocally(ctx context.Context, accessToken string) (Claims, error) {
	if !a.flows.Initialized() {
		return Claims{}, ErrAuthorityNotReady
	}

	start := time.Now()
	res := a.flows.Validate(ctx, accessToken)
	a.metrics.Observe(MetricValidateLatency, time.Since(start))

	switch res.Failure {
	case flows.ValidateFailureNone:
		a.metrics.Inc(MetricValidateValid)
		return claimsFrom(res.Claims), nil
	case flows.ValidateFailureRevoked:
		a.metrics.Inc(MetricValidateRevoked)
		a.log.Warn("revoked token presented",
			zap.String("tid", res.Claims.TID()),
			zap.String("principal", res.Claims.Subject),
		)
		return Claims{}, ErrTokenRevoked
	case flows.ValidateFailureMissingTID:
		a.metrics.Inc(MetricValidateInvalid)
		return Claims{}, ErrMissingTID
	default:
		a.metrics.Inc(MetricValidateInvalid)
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, res.Err)
	}
}

// EnsureAdmin creates an ADMIN account for email when none exists. The
// password strength policy is not applied. It reports whether an account was
// created.
func (a *Authority) EnsureAdmin(ctx context.Context, email, pw string) (bool, error) {
	email = flows.NormalizeEmail(email)
	if email == "" {
		return false, ErrInvalidEmail
	}

	_, err := a.users.GetUserByIdentifier(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}

	hash, err := a.hasher.Hash(pw)
	if err != nil {
		return false, err
	}
	_, err = a.users.CreateUser(ctx, UserRecord{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		CreatedAt:    a.now(),
	})
	switch {
	case err == nil:
		a.log.Info("admin account created", zap.String("principal", email))
		return true, nil
	case errors.Is(err, ErrAccountExists):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
}

// ResetLoginAttempts clears the failed-login counter for ip.
func (a *Authority) ResetLoginAttempts(ctx context.Context, ip string) {
	if r, ok := a.limiter.(resetter); ok {
		r.Reset(ctx, flows.LoginIdentity(ip))
	}
}

func (a *Authority) emitAudit(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string) {
	event := AuditEvent{
		Timestamp: a.now(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	a.audit.Emit(ctx, event)
}

func claimsFrom(c *jwt.Claims) Claims {
	out := Claims{
		TID:       c.TID(),
		Subject:   c.Subject,
		Role:      Role(c.Role),
		ExpiresAt: c.ExpiresAtTime(),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out
}
