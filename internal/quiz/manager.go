package quiz

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-classroom/internal/lock"
)

const DefaultSessionTTL = 2 * time.Hour

// Started is what Manager.Start hands back to the shell.
type Started struct {
	SessionID string     `json:"session_id"`
	Questions []Question `json:"-"`
	Decision  Decision   `json:"decision"`
	Snapshot  Snapshot   `json:"snapshot"`
}

type entry struct {
	c       *Controller
	viewer  Viewer
	lockKey string
	token   string
	touched time.Time
}

// Manager keeps the open controllers of many learners, one per session ID,
// and holds a lock per enrollment+lesson so a second session cannot start.
type Manager struct {
	newController func() *Controller
	locker        lock.Locker
	ttl           time.Duration
	now           func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type ManagerOption func(*Manager)

// WithManagerClock sets the clock idle sessions are reaped against.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager. ttl is both the idle timeout of a session and
// the lease it holds on its enrollment+lesson lock; every Get renews both.
func NewManager(newController func() *Controller, locker lock.Locker, ttl time.Duration, opts ...ManagerOption) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if locker == nil {
		locker = lock.NewMemory()
	}
	m := &Manager{
		newController: newController,
		locker:        locker,
		ttl:           ttl,
		now:           time.Now,
		entries:       map[string]*entry{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func lockKey(enrollmentID, lessonID string) string {
	return "quiz:" + enrollmentID + ":" + lessonID
}

// Status opens a throwaway controller to answer "may I start?".
func (m *Manager) Status(ctx context.Context, lessonID, enrollmentID string, v Viewer) (Status, error) {
	return m.newController().Open(ctx, lessonID, enrollmentID, v)
}

func (m *Manager) Start(ctx context.Context, lessonID, enrollmentID string, v Viewer) (Started, error) {
	m.reap()

	c := m.newController()
	if _, err := c.Open(ctx, lessonID, enrollmentID, v); err != nil {
		return Started{}, err
	}
	key := lockKey(enrollmentID, lessonID)
	tok, ok, err := m.locker.Acquire(ctx, key, m.ttl)
	if err != nil {
		return Started{}, err
	}
	if !ok {
		return Started{}, ErrSessionActive
	}
	qs, d, err := c.Start(ctx)
	if err != nil {
		m.release(key, tok)
		return Started{}, err
	}
	snap, _ := c.Snapshot()

	id := uuid.NewString()
	m.mu.Lock()
	m.entries[id] = &entry{c: c, viewer: v, lockKey: key, token: tok, touched: m.now()}
	m.mu.Unlock()
	return Started{SessionID: id, Questions: qs, Decision: d, Snapshot: snap}, nil
}

func (m *Manager) lookup(id string, v Viewer) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.viewer.Subject != v.Subject {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// Get returns the controller behind id if v owns it and renews the session's
// lease. A session whose lease ran out is dropped with ErrSessionExpired.
func (m *Manager) Get(ctx context.Context, id string, v Viewer) (*Controller, error) {
	e, err := m.lookup(id, v)
	if err != nil {
		return nil, err
	}
	ok, err := m.locker.Refresh(ctx, e.lockKey, e.token, m.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		if e.c.Close() {
			log.Printf("quiz: session %s lost its lock with an unsaved result", id)
		}
		m.drop(id)
		return nil, ErrSessionExpired
	}
	m.mu.Lock()
	e.touched = m.now()
	m.mu.Unlock()
	return e.c, nil
}

func (m *Manager) Finish(ctx context.Context, id string, v Viewer) (Result, error) {
	c, err := m.Get(ctx, id, v)
	if err != nil {
		return Result{}, err
	}
	res, err := c.Finish(ctx)
	m.settle(id, err)
	return res, err
}

func (m *Manager) Save(ctx context.Context, id string, v Viewer) (Result, error) {
	c, err := m.Get(ctx, id, v)
	if err != nil {
		return Result{}, err
	}
	res, err := c.RetrySave(ctx)
	m.settle(id, err)
	return res, err
}

// settle drops the session once nothing is left to retry.
func (m *Manager) settle(id string, err error) {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return
	}
	if err == nil || errors.As(err, new(*DeniedError)) {
		m.drop(id)
	}
}

// Close discards the session and reports whether an unsaved result went with it.
func (m *Manager) Close(id string, v Viewer) (bool, error) {
	e, err := m.lookup(id, v)
	if err != nil {
		return false, err
	}
	discarded := e.c.Close()
	m.drop(id)
	return discarded, nil
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if ok {
		m.release(e.lockKey, e.token)
	}
}

func (m *Manager) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.locker.Release(ctx, key, token); err != nil {
		log.Printf("quiz: release %s: %v", key, err)
	}
}

func (m *Manager) reap() {
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	var idle []string
	for id, e := range m.entries {
		if e.touched.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.Unlock()
	for _, id := range idle {
		m.mu.Lock()
		e := m.entries[id]
		m.mu.Unlock()
		if e == nil {
			continue
		}
		if e.c.Close() {
			log.Printf("quiz: session %s expired with an unsaved result", id)
		}
		m.drop(id)
	}
}

// Len is the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
