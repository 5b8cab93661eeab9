package flows

import (
	"context"
	"errors"
)

// RegisterFailureKind classifies registration failures.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalidEmail
	RegisterFailurePolicy
	RegisterFailureExists
	RegisterFailureHash
	RegisterFailureUserStore
	RegisterFailureIssueAccess
)

// RegisterResult carries the new account's access token or failure metadata.
type RegisterResult struct {
	Failure     RegisterFailureKind
	Err         error
	Email       string
	Role        string
	AccessToken string
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	DefaultRole string

	ValidateStrength func(string) error
	HashPassword     func(string) (string, error)
	CreateUser       func(context.Context, UserRecord) (UserRecord, error)
	IssueAccessToken func(subject, role string) (string, error)

	AccountExists error
}

// RunRegister creates an account with the default role and issues it an
// access token. No refresh credential is minted.
func RunRegister(ctx context.Context, email, password string, deps RegisterDeps) RegisterResult {
	email = NormalizeEmail(email)
	if email == "" {
		return RegisterResult{Failure: RegisterFailureInvalidEmail, Err: errors.New("email required")}
	}

	if deps.ValidateStrength != nil {
		if err := deps.ValidateStrength(password); err != nil {
			return RegisterResult{Failure: RegisterFailurePolicy, Err: err, Email: email}
		}
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err, Email: email}
	}

	user, err := deps.CreateUser(ctx, UserRecord{
		Email:        email,
		PasswordHash: hash,
		Role:         deps.DefaultRole,
	})
	if err != nil {
		if deps.AccountExists != nil && errors.Is(err, deps.AccountExists) {
			return RegisterResult{Failure: RegisterFailureExists, Err: err, Email: email}
		}
		return RegisterResult{Failure: RegisterFailureUserStore, Err: err, Email: email}
	}

	access, err := deps.IssueAccessToken(user.Email, user.Role)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureIssueAccess, Err: err, Email: user.Email}
	}

	return RegisterResult{
		Failure:     RegisterFailureNone,
		Email:       user.Email,
		Role:        user.Role,
		AccessToken: access,
	}
}
