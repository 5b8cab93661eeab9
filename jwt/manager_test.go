package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	cfg := Config{AccessTTL: 10 * time.Hour, Secret: testSecret, Issuer: "auth-service"}
	if clock != nil {
		cfg.Now = clock.Now
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager(Config{AccessTTL: time.Minute, Secret: []byte("short")}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: 0, Secret: testSecret}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, err := m.Issue("admin@example.com", "ADMIN", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact JWS, got %q", token)
	}

	claims, err := m.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Subject != "admin@example.com" || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TID() == "" {
		t.Fatal("expected tid to be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 10*time.Hour {
		t.Fatalf("expected lifetime 10h, got %v", got)
	}
}

func TestIssueGeneratesUniqueTIDs(t *testing.T) {
	m := newTestManager(t, nil)
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		token, err := m.Issue("u@example.com", "USER", time.Minute)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		tid := ExtractTID(token)
		if _, dup := seen[tid]; dup {
			t.Fatalf("duplicate tid %q", tid)
		}
		seen[tid] = struct{}{}
	}
}

func TestDecodeExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, err := m.Issue("u@example.com", "USER", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := m.Decode(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	claims, err := m.DecodeIgnoringExpiry(token)
	if err != nil {
		t.Fatalf("decode ignoring expiry: %v", err)
	}
	if claims.Subject != "u@example.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestDecodeBadSignature(t *testing.T) {
	m := newTestManager(t, nil)
	other, err := NewManager(Config{AccessTTL: time.Hour, Secret: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "auth-service"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := other.Issue("u@example.com", "USER", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Decode(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
	if _, err := m.DecodeIgnoringExpiry(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature ignoring expiry, got %v", err)
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)

	claims := Claims{Role: "ADMIN", RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "tid-1",
		Subject:   "u@example.com",
		Issuer:    "auth-service",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS384, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Decode(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected wrong algorithm to be rejected as bad signature, got %v", err)
	}

	unsigned, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Decode(unsigned); err == nil {
		t.Fatal("expected alg=none to be rejected")
	}
}

func TestDecodeMalformed(t *testing.T) {
	m := newTestManager(t, nil)
	for _, input := range []string{"", "abc", "a.b", "a.b.c.d", "!!!.@@@.###"} {
		if _, err := m.Decode(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestDecodeRejectsForeignIssuer(t *testing.T) {
	m := newTestManager(t, nil)
	foreign, err := NewManager(Config{AccessTTL: time.Hour, Secret: testSecret, Issuer: "someone-else"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := foreign.Issue("u@example.com", "USER", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Decode(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected foreign issuer to be rejected, got %v", err)
	}
	if _, err := m.DecodeIgnoringExpiry(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected foreign issuer to be rejected ignoring expiry, got %v", err)
	}
}

func TestExtractIsBestEffort(t *testing.T) {
	m := newTestManager(t, nil)
	token, err := m.Issue("u@example.com", "USER", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if ExtractTID(token) == "" {
		t.Fatal("expected tid from a valid token")
	}
	if got := m.Extract(token, "sub"); got != "u@example.com" {
		t.Fatalf("expected sub claim, got %q", got)
	}
	if got := Extract(token, "iat"); got != "" {
		t.Fatalf("expected non-string claim to yield empty, got %q", got)
	}
	if got := Extract(token, "missing"); got != "" {
		t.Fatalf("expected missing claim to yield empty, got %q", got)
	}
	for _, input := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.not-base64!.sig"} {
		if got := ExtractTID(input); got != "" {
			t.Fatalf("input %q: expected empty tid, got %q", input, got)
		}
	}
}

func TestExtractIgnoresSignature(t *testing.T) {
	claims := gjwt.MapClaims{"jti": "tid-from-elsewhere", "sub": "x"}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("not-the-shared-secret-at-all-000"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got := ExtractTID(token); got != "tid-from-elsewhere" {
		t.Fatalf("expected tid regardless of signature, got %q", got)
	}
}
