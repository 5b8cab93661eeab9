package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minSecretBytes = 32

var (
	// ErrMalformed is returned when the token is not a well-formed compact JWS
	// or carries claims that fail validation other than expiry.
	ErrMalformed = errors.New("token malformed")
	// ErrBadSignature is returned when the signature does not verify under the
	// shared key or the token was signed with an unexpected algorithm.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrExpired is returned for a correctly signed token whose exp has passed.
	ErrExpired = errors.New("token expired")
)

// Config carries the shared signing key and lifetime defaults. Both services
// must be configured with the same Secret and Issuer.
type Config struct {
	AccessTTL time.Duration
	Secret    []byte
	Issuer    string
	Leeway    time.Duration

	// Now overrides the clock used for iat/exp. Nil means time.Now.
	Now func() time.Time
}

// Manager issues and verifies HS256 access tokens.
//
// A Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
}

// Claims is the decoded access-token payload. The token identifier (tid) is
// carried in the registered "jti" claim.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TID returns the unique token identifier used as the unit of revocation.
func (c *Claims) TID() string {
	if c == nil {
		return ""
	}
	return c.ID
}

// ExpiresAtTime returns exp as a time.Time, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg, method: jwt.SigningMethodHS256}, nil
}

// AccessTTL returns the configured default access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// Issue signs a new token for subject with a fresh tid. A non-positive
// lifetime falls back to the configured AccessTTL.
func (m *Manager) Issue(subject, role string, lifetime time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject required")
	}
	if lifetime <= 0 {
		lifetime = m.config.AccessTTL
	}

	tid, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate tid: %w", err)
	}

	now := m.config.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tid.String(),
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	return jwt.NewWithClaims(m.method, claims).SignedString(m.config.Secret)
}

// Decode verifies structure, signature and expiry, in that order, and
// returns the claims only when all three pass.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, true)
}

// DecodeIgnoringExpiry verifies structure and signature but accepts tokens
// past their exp. Logout uses it so a stale cookie still clears server state
// without letting a forged token touch another principal's entries.
func (m *Manager) DecodeIgnoringExpiry(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, false)
}

func (m *Manager) parse(tokenStr string, checkClaims bool) (*Claims, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
	}
	if checkClaims {
		options = append(options, jwt.WithExpirationRequired())
		if m.config.Leeway > 0 {
			options = append(options, jwt.WithLeeway(m.config.Leeway))
		}
		if m.config.Issuer != "" {
			options = append(options, jwt.WithIssuer(m.config.Issuer))
		}
	} else {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if !checkClaims && m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrMalformed)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// Extract returns a single string claim from tokenStr without verifying the
// signature. It never fails: undecodable input or a missing or non-string
// claim yields "".
func (m *Manager) Extract(tokenStr, claim string) string {
	return Extract(tokenStr, claim)
}

// Extract is the receiver-free form of [Manager.Extract], usable by
// components that hold no signing key.
func Extract(tokenStr, claim string) string {
	if tokenStr == "" || claim == "" || strings.Count(tokenStr, ".") != 2 {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return ""
	}

	value, _ := claims[claim].(string)
	return value
}

// ExtractTID is shorthand for Extract(tokenStr, "jti").
func ExtractTID(tokenStr string) string {
	return Extract(tokenStr, "jti")
}
