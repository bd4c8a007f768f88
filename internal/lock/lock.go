package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker hands out exclusive, expiring leases on a key. Acquire returns
// ok=false when someone else holds the key. Refresh pushes the expiry of a
// live lease out to ttl from now and returns ok=false once token no longer
// holds it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) (ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type lease struct {
	token   string
	expires time.Time
}

// Memory is a single-process Locker.
type Memory struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryClock(time.Now)
}

// NewMemoryClock is NewMemory with expiry measured against now.
func NewMemoryClock(now func() time.Time) *Memory {
	return &Memory{leases: map[string]lease{}, now: now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expires) {
		return "", false, nil
	}
	tok := uuid.NewString()
	m.leases[key] = lease{token: tok, expires: now.Add(ttl)}
	return tok, true, nil
}

func (m *Memory) Refresh(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	l, ok := m.leases[key]
	if !ok || l.token != token || !now.Before(l.expires) {
		return false, nil
	}
	m.leases[key] = lease{token: token, expires: now.Add(ttl)}
	return true, nil
}

// Release is a no-op unless token still owns the key.
func (m *Memory) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[key]; ok && l.token == token {
		delete(m.leases, key)
	}
	return nil
}
