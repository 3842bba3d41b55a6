package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Store persists sessions. The core only needs read-your-write consistency
// within a single serialized session; backends may be in-memory or external.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// MemoryStore is the in-process default for local/dev use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// idleBefore returns clones of sessions whose last activity predates cutoff.
func (s *MemoryStore) idleBefore(cutoff time.Time) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var idle []*Session
	for _, sess := range s.sessions {
		if sess.LastActivityAt.Before(cutoff) {
			idle = append(idle, sess.Clone())
		}
	}
	return idle
}
