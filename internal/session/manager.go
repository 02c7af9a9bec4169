package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// minCleanupInterval bounds how often StartCleanup sweeps
const minCleanupInterval = time.Millisecond

// Session holds one client's value between requests
type Session[T any] struct {
	ID         string
	Value      T
	CreatedAt  time.Time
	LastAccess time.Time
}

// Manager handles session lifecycle
type Manager[T any] struct {
	sessions map[string]*Session[T]
	mu       sync.RWMutex
	ttl      time.Duration
	onEvict  func(*Session[T])
}

// NewManager creates a new session manager
func NewManager[T any](ttl time.Duration) *Manager[T] {
	if ttl <= 0 {
		ttl = 24 * time.Hour // Default 24 hours
	}

	return &Manager[T]{
		sessions: make(map[string]*Session[T]),
		ttl:      ttl,
	}
}

// OnEvict registers fn to run for every session removed by deletion or
// expiry. fn runs without the manager lock held.
func (m *Manager[T]) OnEvict(fn func(*Session[T])) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// TTL returns how long an idle session lives
func (m *Manager[T]) TTL() time.Duration {
	return m.ttl
}

// CreateSession creates a new session
func (m *Manager[T]) CreateSession(value T) (*Session[T], error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session[T]{
		ID:         sessionID,
		Value:      value,
		CreatedAt:  now,
		LastAccess: now,
	}

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by ID
func (m *Manager[T]) GetSession(sessionID string) (*Session[T], bool) {
	m.mu.Lock()

	session, exists := m.sessions[sessionID]
	if !exists {
		m.mu.Unlock()
		return nil, false
	}

	// Check if session has expired
	if time.Since(session.LastAccess) > m.ttl {
		delete(m.sessions, sessionID)
		onEvict := m.onEvict
		m.mu.Unlock()
		if onEvict != nil {
			onEvict(session)
		}
		return nil, false
	}

	// Update last access time
	session.LastAccess = time.Now()
	m.mu.Unlock()
	return session, true
}

// DeleteSession removes a session
func (m *Manager[T]) DeleteSession(sessionID string) {
	m.mu.Lock()
	session, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	onEvict := m.onEvict
	m.mu.Unlock()

	if exists && onEvict != nil {
		onEvict(session)
	}
}

// Len returns the number of live sessions
func (m *Manager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpiredSessions removes expired sessions
func (m *Manager[T]) CleanupExpiredSessions() int {
	m.mu.Lock()

	var expired []*Session[T]
	cutoff := time.Now().Add(-m.ttl)

	for sessionID, session := range m.sessions {
		if session.LastAccess.Before(cutoff) {
			delete(m.sessions, sessionID)
			expired = append(expired, session)
		}
	}
	onEvict := m.onEvict
	m.mu.Unlock()

	if onEvict != nil {
		for _, session := range expired {
			onEvict(session)
		}
	}

	return len(expired)
}

// StartCleanup removes expired sessions every interval until ctx is done.
// report, if set, receives the number removed by each pass.
func (m *Manager[T]) StartCleanup(ctx context.Context, interval time.Duration, report func(removed int)) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	// NewTicker panics on a non-positive interval
	interval = max(interval, minCleanupInterval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := m.CleanupExpiredSessions()
				if report != nil {
					report(removed)
				}
			}
		}
	}()
}

// Close removes every session
func (m *Manager[T]) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session[T])
	onEvict := m.onEvict
	m.mu.Unlock()

	if onEvict != nil {
		for _, session := range sessions {
			onEvict(session)
		}
	}
}

// generateSessionID creates a cryptographically secure session ID
func generateSessionID() (string, error) {
	bytes := make([]byte, 32) // 256-bit session ID
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
