package flows

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureMismatch
	RefreshFailureUserNotFound
	RefreshFailureUserStore
	RefreshFailureIssueAccess
	RefreshFailureCredential
)

// RefreshResult carries the rotated pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Principal    string
	Role         string
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	RefreshTTL time.Duration

	GetUserByIdentifier     func(context.Context, string) (UserRecord, error)
	IssueAccessToken        func(subject, role string) (string, error)
	NewRefreshCredential    func() (string, error)
	DigestRefreshCredential func(string) string

	RefreshStore RefreshStore
	UserNotFound error
	Logger       *zap.Logger
}

// RunRefresh checks supplied against the principal's stored credential and,
// on a match, issues a new access token carrying the principal's current
// role and rotates the stored credential.
//
// Concurrent calls presenting the same credential are not serialized: both
// may pass the comparison, but only the last Store survives, so exactly one
// of the returned credentials is usable afterwards.
func RunRefresh(ctx context.Context, principal, supplied string, deps RefreshDeps) RefreshResult {
	principal = NormalizeEmail(principal)
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	stored, ok := deps.RefreshStore.Fetch(ctx, principal)
	if !ok {
		return RefreshResult{Failure: RefreshFailureMissing, Principal: principal}
	}
	if !digestsEqual(stored, deps.DigestRefreshCredential(supplied)) {
		log.Warn("refresh credential mismatch", zap.String("principal", principal))
		return RefreshResult{Failure: RefreshFailureMismatch, Principal: principal}
	}

	user, err := deps.GetUserByIdentifier(ctx, principal)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			deps.RefreshStore.Delete(ctx, principal)
			return RefreshResult{Failure: RefreshFailureUserNotFound, Err: err, Principal: principal}
		}
		return RefreshResult{Failure: RefreshFailureUserStore, Err: err, Principal: principal}
	}

	access, err := deps.IssueAccessToken(user.Email, user.Role)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, Principal: principal}
	}

	next, err := deps.NewRefreshCredential()
	if err != nil {
		return RefreshResult{Failure: RefreshFailureCredential, Err: err, Principal: principal}
	}
	deps.RefreshStore.Store(ctx, principal, deps.DigestRefreshCredential(next), deps.RefreshTTL)

	return RefreshResult{
		Failure:      RefreshFailureNone,
		Principal:    principal,
		Role:         user.Role,
		AccessToken:  access,
		RefreshToken: next,
	}
}
