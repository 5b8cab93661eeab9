package resourceapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w22116972/tokenauth"
	"github.com/w22116972/tokenauth/internal/rate"
	"github.com/w22116972/tokenauth/internal/ttlstore"
	"github.com/w22116972/tokenauth/internal/userstore"
	"github.com/w22116972/tokenauth/jwt"
	"github.com/w22116972/tokenauth/password"
	"github.com/w22116972/tokenauth/session"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

type env struct {
	mr       *miniredis.Miniredis
	store    ttlstore.Store
	auth     *tokenauth.Authority
	resource http.Handler
}

func newEnv(t *testing.T, limit int) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	store := ttlstore.NewRedis(rdb, time.Second)
	return newEnvOnStore(t, mr, store, limit)
}

func newEnvOnStore(t *testing.T, mr *miniredis.Miniredis, store ttlstore.Store, limit int) *env {
	t.Helper()

	cfg := tokenauth.DefaultConfig()
	cfg.JWT.Secret = secret
	cfg.JWT.AccessTTL = time.Hour
	cfg.Password = password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	auth, err := tokenauth.New().
		WithConfig(cfg).
		WithStore(store).
		WithUserProvider(userstore.NewMemory()).
		Build()
	require.NoError(t, err)
	_, err = auth.EnsureAdmin(context.Background(), "admin@example.com", "password123")
	require.NoError(t, err)

	codec, err := jwt.NewManager(jwt.Config{AccessTTL: time.Hour, Secret: secret})
	require.NoError(t, err)

	return &env{
		mr:    mr,
		store: store,
		auth:  auth,
		resource: NewRouter(Options{
			Codec:           codec,
			Revocations:     session.NewRevocationList(store, nil),
			Limiter:         rate.New(store, nil),
			RateLimitMax:    limit,
			RateLimitWindow: time.Minute,
			Ping:            store.Ping,
		}),
	}
}

func (e *env) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "198.51.100.4:5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.resource.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestLogoutRevokesAcrossServices(t *testing.T) {
	e := newEnv(t, 100)

	login, err := e.auth.Login(context.Background(), "admin@example.com", "password123")
	require.NoError(t, err)

	rec := e.get("/api/me", login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"admin@example.com","role":"ADMIN"}`, rec.Body.String())

	e.auth.Logout(context.Background(), login.AccessToken)

	rec = e.get("/api/me", login.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", errorMessage(t, rec))
}

func TestGarbageTokenMissingTID(t *testing.T) {
	e := newEnv(t, 100)
	rec := e.get("/api/me", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token: missing JTI", errorMessage(t, rec))
}

func TestUnauthenticated(t *testing.T) {
	e := newEnv(t, 100)
	rec := e.get("/api/me", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", errorMessage(t, rec))
}

func TestPublicPath(t *testing.T) {
	e := newEnv(t, 100)
	assert.Equal(t, http.StatusOK, e.get("/api/public/ping", "").Code)
	assert.Equal(t, http.StatusOK, e.get("/api/public/ping", "garbage").Code)
}

func TestAdminPing(t *testing.T) {
	e := newEnv(t, 100)
	_, err := e.auth.Register(context.Background(), "user@example.com", "Str0ng!Pass")
	require.NoError(t, err)

	user, err := e.auth.Login(context.Background(), "user@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	rec := e.get("/api/admin/ping", user.AccessToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", errorMessage(t, rec))

	admin, err := e.auth.Login(context.Background(), "admin@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, e.get("/api/admin/ping", admin.AccessToken).Code)
}

func TestAPIRateLimit(t *testing.T) {
	e := newEnv(t, 2)

	assert.Equal(t, http.StatusOK, e.get("/api/public/ping", "").Code)
	assert.Equal(t, http.StatusOK, e.get("/api/public/ping", "").Code)
	rec := e.get("/api/public/ping", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests. Please try again later.", errorMessage(t, rec))

	// healthz sits outside the pipeline.
	assert.Equal(t, http.StatusOK, e.get("/healthz", "").Code)

	e.mr.FastForward(61 * time.Second)
	assert.Equal(t, http.StatusOK, e.get("/api/public/ping", "").Code)
}

func TestStoreOutageFailsOpen(t *testing.T) {
	e := newEnv(t, 1)
	login, err := e.auth.Login(context.Background(), "admin@example.com", "password123")
	require.NoError(t, err)

	e.mr.SetError("LOADING")
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, e.get("/api/me", login.AccessToken).Code)
	}

	rec := e.get("/healthz", "")
	assert.JSONEq(t, `{"status":"degraded","store":"down"}`, rec.Body.String())
}

func TestInProcessStoreBackend(t *testing.T) {
	store := ttlstore.NewMemory()
	e := newEnvOnStore(t, nil, store, 100)

	login, err := e.auth.Login(context.Background(), "admin@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, e.get("/api/me", login.AccessToken).Code)

	e.auth.Logout(context.Background(), login.AccessToken)
	rec := e.get("/api/me", login.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", errorMessage(t, rec))
}
