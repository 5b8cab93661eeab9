package remote

import (
	"context"

	"github.com/w22116972/tokenauth/jwt"
	"go.uber.org/zap"
)

// Messages returned to clients for denied requests.
const (
	MessageMissingTID = "Invalid token: missing JTI"
	MessageRevoked    = "Token has been revoked"
)

// Outcome is the admission decision for one token.
type Outcome int

const (
	// Defer means no token was presented; another layer decides.
	Defer Outcome = iota
	// Pass means the tid is present and not revoked. Structural validation
	// still has to run.
	Pass
	DenyMissingTID
	DenyRevoked
)

func (o Outcome) String() string {
	switch o {
	case Defer:
		return "defer"
	case Pass:
		return "pass"
	case DenyMissingTID:
		return "deny_missing_tid"
	case DenyRevoked:
		return "deny_revoked"
	default:
		return "unknown"
	}
}

// Decision is returned by [Validator.Inspect].
type Decision struct {
	Outcome Outcome
	TID     string
}

// Denied reports whether the request must be rejected.
func (d Decision) Denied() bool {
	return d.Outcome == DenyMissingTID || d.Outcome == DenyRevoked
}

// Message is the client-facing reason for a denial.
func (d Decision) Message() string {
	switch d.Outcome {
	case DenyMissingTID:
		return MessageMissingTID
	case DenyRevoked:
		return MessageRevoked
	default:
		return ""
	}
}

// RevocationChecker answers whether a tid is revoked. Implementations fail
// open.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tid string) bool
}

// Validator checks presented tokens against the shared revocation list.
type Validator struct {
	revocations RevocationChecker
	log         *zap.Logger
}

// NewValidator returns a Validator reading from revocations.
func NewValidator(revocations RevocationChecker, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{revocations: revocations, log: logger}
}

// Inspect decides admission for token. An empty token defers. A token with
// no readable tid is denied, as is a token whose tid is revoked. Anything
// else passes on to structural validation.
func (v *Validator) Inspect(ctx context.Context, token string) Decision {
	if token == "" {
		return Decision{Outcome: Defer}
	}

	tid := jwt.ExtractTID(token)
	if tid == "" {
		v.log.Warn("token missing tid")
		return Decision{Outcome: DenyMissingTID}
	}

	if v.revocations.IsRevoked(ctx, tid) {
		v.log.Warn("revoked token presented", zap.String("tid", tid))
		return Decision{Outcome: DenyRevoked, TID: tid}
	}

	return Decision{Outcome: Pass, TID: tid}
}
