// Package webui provides the HTTP surface of the generation gateway:
// request handlers, anonymous session management, and the server wiring.
package webui

import (
	"context"
	"errors"
	"sync"
	"time"

	"infernalforge/core"
)

// ErrSessionNotFound is returned when a session ID is not found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a session exists but has been idle past
// its TTL.
var ErrSessionExpired = errors.New("session expired")

// SessionStore manages anonymous browsing sessions with thread-safe
// operations. Sessions carry no credentials; they exist only to scope job
// and artifact ownership. A session expires after ttl of inactivity and is
// refreshed by every authenticated-by-cookie request.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]core.Session
	ttl      time.Duration
}

// NewSessionStore creates a new SessionStore with the given inactivity TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]core.Session),
		ttl:      ttl,
	}
}

// Create generates a new session with a cryptographically secure ID.
// The session is stored internally and returned for cookie setting.
func (s *SessionStore) Create() (core.Session, error) {
	id, err := core.GenerateSessionID()
	if err != nil {
		return core.Session{}, err
	}

	session := core.NewSession(id)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Touch retrieves a session by ID and refreshes its activity time.
// Returns ErrSessionNotFound if the session doesn't exist and
// ErrSessionExpired if it has been idle past the TTL; expired sessions are
// removed on the spot.
func (s *SessionStore) Touch(sessionID string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return core.Session{}, ErrSessionNotFound
	}

	if session.ExpiredAfter(s.ttl) {
		delete(s.sessions, sessionID)
		return core.Session{}, ErrSessionExpired
	}

	session = session.Touched()
	s.sessions[sessionID] = session
	return session, nil
}

// Delete removes a session from the store. Idempotent.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Cleanup removes all sessions idle past the TTL.
// Returns the number of sessions that were removed.
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.ExpiredAfter(s.ttl) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker starts a background goroutine that periodically calls
// Cleanup. The ticker stops when the provided context is cancelled.
func (s *SessionStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Count returns the current number of sessions in the store.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
