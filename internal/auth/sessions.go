package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore tracks live sessions so tokens can be revoked before expiry.
type SessionStore interface {
	Save(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	// Lookup returns the owning user id or ErrSessionNotFound.
	Lookup(ctx context.Context, sessionID string) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

// MemorySessions is a process-local SessionStore.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (m *MemorySessions) Save(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = memorySession{userID: userID, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemorySessions) Lookup(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !m.now().Before(s.expiresAt) {
		delete(m.sessions, sessionID)
		return "", ErrSessionNotFound
	}
	return s.userID, nil
}

func (m *MemorySessions) Revoke(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

var _ SessionStore = (*MemorySessions)(nil)
