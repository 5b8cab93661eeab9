package flows

import (
	"context"

	"github.com/w22116972/tokenauth/jwt"
)

// ValidateFailureKind classifies validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureInvalid
	ValidateFailureMissingTID
	ValidateFailureRevoked
)

// ValidateResult returns the verified claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures local validation dependencies.
type ValidateDeps struct {
	Decode      func(string) (*jwt.Claims, error)
	Revocations RevocationStore
}

// RunValidate accepts a token only when it decodes, carries a tid, and that
// tid is not revoked. Revocation lookups fail open.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	claims, err := deps.Decode(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureInvalid, Err: err}
	}
	if claims.TID() == "" {
		return ValidateResult{Failure: ValidateFailureMissingTID, Claims: claims}
	}
	if deps.Revocations != nil && deps.Revocations.IsRevoked(ctx, claims.TID()) {
		return ValidateResult{Failure: ValidateFailureRevoked, Claims: claims}
	}
	return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
}
