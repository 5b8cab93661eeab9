package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w22116972/tokenauth/internal/rate"
	"github.com/w22116972/tokenauth/internal/ttlstore"
	"github.com/w22116972/tokenauth/jwt"
	"github.com/w22116972/tokenauth/remote"
	"github.com/w22116972/tokenauth/session"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	mr          *miniredis.Miniredis
	codec       *jwt.Manager
	clock       *clock
	revocations *session.RevocationList
	limiter     *rate.Limiter
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	c := &clock{now: time.Now()}
	codec, err := jwt.NewManager(jwt.Config{
		AccessTTL: time.Hour,
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Now:       c.Now,
	})
	require.NoError(t, err)

	store := ttlstore.NewRedis(rdb, time.Second)
	return &env{
		mr:          mr,
		codec:       codec,
		clock:       c,
		revocations: session.NewRevocationList(store, nil),
		limiter:     rate.New(store, nil),
	}
}

func (e *env) pipeline(extra ...Check) *Pipeline {
	checks := []Check{
		PublicPaths(DefaultPublicPaths...),
		Revocation(remote.NewValidator(e.revocations, nil), DefaultCookieName),
		Structural(e.codec, DefaultCookieName, nil),
		RequirePrincipal(),
	}
	return NewPipeline(nil, append(checks, extra...)...)
}

func (e *env) issue(t *testing.T, subject, role string) (string, *jwt.Claims) {
	t.Helper()
	token, err := e.codec.Issue(subject, role, 0)
	require.NoError(t, err)
	claims, err := e.codec.Decode(token)
	require.NoError(t, err)
	return token, claims
}

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]string{"subject": p.Subject, "role": p.Role})
	})
}

func serve(p *Pipeline, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	p.Middleware(echoPrincipal()).ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestPipelineAdmitsValidToken(t *testing.T) {
	e := newEnv(t)
	token, _ := e.issue(t, "admin@example.com", "ADMIN")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(e.pipeline(), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin@example.com")
}

func TestPipelineCookieToken(t *testing.T) {
	e := newEnv(t)
	token, _ := e.issue(t, "user@example.com", "USER")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := serve(e.pipeline(), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user@example.com")
}

func TestHeaderTakesPrecedenceOverCookie(t *testing.T) {
	e := newEnv(t)
	good, _ := e.issue(t, "good@example.com", "USER")
	revoked, claims := e.issue(t, "revoked@example.com", "USER")
	e.revocations.Revoke(context.Background(), claims.TID(), time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	req.AddCookie(&http.Cookie{Name: "token", Value: revoked})
	rec := serve(e.pipeline(), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "good@example.com")
}

func TestNoTokenDefersToAuthenticationLayer(t *testing.T) {
	e := newEnv(t)

	// Without RequirePrincipal every check defers and the handler runs.
	open := NewPipeline(nil,
		Revocation(remote.NewValidator(e.revocations, nil), DefaultCookieName),
		Structural(e.codec, DefaultCookieName, nil),
	)
	rec := serve(open, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e.pipeline(), httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MessageUnauthenticated, errorBody(t, rec))
}

func TestGarbageTokenMissingTID(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := serve(e.pipeline(), req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token: missing JTI", errorBody(t, rec))
}

func TestRevokedTokenRejected(t *testing.T) {
	e := newEnv(t)
	token, claims := e.issue(t, "admin@example.com", "ADMIN")
	e.revocations.Revoke(context.Background(), claims.TID(), time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(e.pipeline(), req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", errorBody(t, rec))
}

func TestExpiredUnrevokedRejectedByStructuralCheck(t *testing.T) {
	e := newEnv(t)
	token, _ := e.issue(t, "admin@example.com", "ADMIN")
	e.clock.Advance(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(e.pipeline(), req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MessageInvalidToken, errorBody(t, rec))
}

func TestForgedTokenPassesRevocationButFailsStructural(t *testing.T) {
	e := newEnv(t)
	other, err := jwt.NewManager(jwt.Config{AccessTTL: time.Hour, Secret: []byte("ffffffffffffffffffffffffffffffff")})
	require.NoError(t, err)
	forged, err := other.Issue("admin@example.com", "ADMIN", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := serve(e.pipeline(), req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MessageInvalidToken, errorBody(t, rec))
}

func TestRevocationFailsOpenWhenStoreDown(t *testing.T) {
	e := newEnv(t)
	token, claims := e.issue(t, "admin@example.com", "ADMIN")
	e.revocations.Revoke(context.Background(), claims.TID(), time.Hour)
	e.mr.SetError("LOADING")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(e.pipeline(), req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicPathsSkipChecks(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/health", "/actuator/info", "/api/public/articles", "/swagger-ui/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := serve(e.pipeline(), req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRateLimitCheck(t *testing.T) {
	e := newEnv(t)
	token, _ := e.issue(t, "admin@example.com", "ADMIN")
	p := NewPipeline(nil, RateLimit(e.limiter, 3, time.Minute, IPResolver{}), Structural(e.codec, "", nil), RequirePrincipal())

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Forwarded-For", ip)
		return serve(p, req)
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do("203.0.113.9").Code)
	}
	rec := do("203.0.113.9")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, MessageTooManyRequests, errorBody(t, rec))
	assert.Equal(t, http.StatusOK, do("203.0.113.10").Code)
	assert.True(t, e.mr.Exists("ratelimit:api:203.0.113.9"))

	e.mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, do("203.0.113.9").Code)
}

func TestRequireRole(t *testing.T) {
	e := newEnv(t)
	user, _ := e.issue(t, "user@example.com", "USER")
	admin, _ := e.issue(t, "admin@example.com", "ADMIN")
	p := e.pipeline(RequireRole("ADMIN"))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	rec := serve(p, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, MessageForbidden, errorBody(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, serve(p, req).Code)
}

func TestAllowShortCircuits(t *testing.T) {
	called := false
	p := NewPipeline(nil,
		CheckFunc(func(*http.Request) Result { return Allowed() }),
		CheckFunc(func(*http.Request) Result {
			called = true
			return Denied(http.StatusTeapot, "unreachable")
		}),
	)
	rec := serve(p, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1", "X-Real-IP": "198.51.100.2"}, "10.0.0.9:1234", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.9:1234", "198.51.100.2"},
		{"remote addr", nil, "10.0.0.9:1234", "10.0.0.9"},
		{"remote addr without port", nil, "10.0.0.9", "10.0.0.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(req))
		})
	}
}

func TestIPResolverTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", ""})
	require.NoError(t, err)
	require.Len(t, proxies, 2)
	res := IPResolver{TrustedProxies: proxies}

	cases := []struct {
		name   string
		xff    string
		real   string
		remote string
		want   string
	}{
		{"untrusted peer ignores headers", "203.0.113.1", "198.51.100.2", "198.51.100.9:1234", "198.51.100.9"},
		{"rightmost untrusted hop", "1.1.1.1, 203.0.113.1, 10.0.0.7", "", "192.0.2.1:1234", "203.0.113.1"},
		{"forged leftmost entry ignored", "6.6.6.6, 203.0.113.1", "", "10.1.2.3:1234", "203.0.113.1"},
		{"all hops trusted falls to real ip", "10.0.0.5", "203.0.113.5", "10.0.0.9:1234", "203.0.113.5"},
		{"trusted peer without headers", "", "", "10.0.0.9:1234", "10.0.0.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.real != "" {
				req.Header.Set("X-Real-IP", tc.real)
			}
			assert.Equal(t, tc.want, res.ClientIP(req))
		})
	}

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(req, ""))

	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(req, ""))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(req, "token"))

	assert.Equal(t, "from-header", TokenFromRequest(req, "other"))
	req.Header.Del("Authorization")
	assert.Empty(t, TokenFromRequest(req, "other"))
}
