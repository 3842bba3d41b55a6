package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns session lifecycle: create-on-first-turn, per-session
// serialization and idle expiry. The state machine is not safe under
// interleaved transitions, so concurrent turns for one session take the same
// lock; turns for different sessions proceed in parallel.
type Manager struct {
	store       Store
	idleTimeout time.Duration

	mu       sync.Mutex
	locks    map[string]*sessionLock
	onExpire func(*Session)
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Manager{
		store:       store,
		idleTimeout: idleTimeout,
		locks:       make(map[string]*sessionLock),
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Lock serializes access to one session and returns the unlock func. Lock
// entries are reference-counted so the map does not grow with dead sessions.
func (m *Manager) Lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// GetOrCreate loads the session or creates it on the first message from a
// (user, session) pair. Callers must hold the session lock.
func (m *Manager) GetOrCreate(ctx context.Context, userID, sessionID string) (*Session, bool, error) {
	if sessionID != "" {
		sess, err := m.store.Get(ctx, sessionID)
		if err == nil {
			return sess, false, nil
		}
		if err != ErrNotFound {
			return nil, false, err
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess := New(sessionID, userID)
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Save persists the session after a turn. Callers must hold the session lock.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	return m.store.Put(ctx, sess)
}

// End deletes the session immediately.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// StartJanitor sweeps idle sessions out of the memory backend. Stores with
// native TTL expiry (Redis) don't need it.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	mem, ok := m.store.(*MemoryStore)
	if !ok {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireIdle(ctx, mem)
			}
		}
	}()
}

func (m *Manager) expireIdle(ctx context.Context, mem *MemoryStore) {
	cutoff := time.Now().UTC().Add(-m.idleTimeout)
	for _, sess := range mem.idleBefore(cutoff) {
		unlock := m.Lock(sess.ID)
		current, err := mem.Get(ctx, sess.ID)
		if err == nil && current.LastActivityAt.Before(cutoff) {
			_ = mem.Delete(ctx, sess.ID)
			m.mu.Lock()
			hook := m.onExpire
			m.mu.Unlock()
			if hook != nil {
				hook(current)
			}
		}
		unlock()
	}
}
