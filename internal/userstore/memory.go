package userstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/w22116972/tokenauth"
)

var _ tokenauth.UserProvider = (*Memory)(nil)

// Memory is a mutex-guarded map of accounts keyed by email.
type Memory struct {
	mu    sync.RWMutex
	users map[string]tokenauth.UserRecord
	now   func() time.Time
}

// NewMemory returns an empty in-process provider.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]tokenauth.UserRecord), now: time.Now}
}

func (m *Memory) GetUserByIdentifier(_ context.Context, email string) (tokenauth.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return tokenauth.UserRecord{}, fmt.Errorf("%w: %s", tokenauth.ErrUserNotFound, email)
	}
	return u, nil
}

func (m *Memory) CreateUser(_ context.Context, u tokenauth.UserRecord) (tokenauth.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Email]; ok {
		return tokenauth.UserRecord{}, fmt.Errorf("%w: %s", tokenauth.ErrAccountExists, u.Email)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	m.users[u.Email] = u
	return u, nil
}

// SetRole changes an account's role. It reports false for an unknown email.
func (m *Memory) SetRole(email string, role tokenauth.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[email]
	if !ok {
		return false
	}
	u.Role = role
	m.users[email] = u
	return true
}

// Delete removes an account.
func (m *Memory) Delete(email string) {
	m.mu.Lock()
	delete(m.users, email)
	m.mu.Unlock()
}

// Len returns the number of stored accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}
