package tokenauth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/w22116972/tokenauth/internal/ttlstore"
	"github.com/w22116972/tokenauth/password"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]UserRecord
	err   error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]UserRecord{}}
}

func (m *memUsers) GetUserByIdentifier(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return UserRecord{}, m.err
	}
	u, ok := m.users[email]
	if !ok {
		return UserRecord{}, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	return u, nil
}

func (m *memUsers) CreateUser(_ context.Context, u UserRecord) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return UserRecord{}, m.err
	}
	if _, ok := m.users[u.Email]; ok {
		return UserRecord{}, ErrAccountExists
	}
	m.users[u.Email] = u
	return u, nil
}

func (m *memUsers) setRole(email string, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[email]
	u.Role = role
	m.users[email] = u
}

func (m *memUsers) remove(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, email)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)
	cfg.JWT.AccessTTL = time.Hour
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

type harness struct {
	auth  *Authority
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	users *memUsers
	clock *testClock
	sink  *ChannelSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		mr:    mr,
		rdb:   rdb,
		users: newMemUsers(),
		clock: newTestClock(),
		sink:  NewChannelSink(256),
	}
	auth, err := New().
		WithConfig(testConfig()).
		WithStore(ttlstore.NewRedis(rdb, time.Second)).
		WithUserProvider(h.users).
		WithAuditSink(h.sink).
		WithClock(h.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build authority: %v", err)
	}
	h.auth = auth

	if _, err := auth.EnsureAdmin(context.Background(), "admin@example.com", "password123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return h
}

func newUnavailableAuthority(t *testing.T, users *memUsers) *Authority {
	t.Helper()
	auth, err := New().
		WithConfig(testConfig()).
		WithStore(ttlstore.Unavailable{}).
		WithUserProvider(users).
		Build()
	if err != nil {
		t.Fatalf("build authority: %v", err)
	}
	if _, err := auth.EnsureAdmin(context.Background(), "admin@example.com", "password123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return auth
}

func drainEvents(s *ChannelSink) []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case e := <-s.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}
