package core

import (
	"time"
)

// DefaultSessionTTL is the default inactivity window after which a session expires.
const DefaultSessionTTL = 24 * time.Hour

// Session represents an anonymous browsing session. A session is created on
// a client's first request and identifies the owner of its jobs and
// artifacts. Sessions carry no attributes beyond identity and activity time.
type Session struct {
	// ID is the unique session identifier (base64 URL-encoded random bytes)
	ID string

	// CreatedAt is when the session was created
	CreatedAt time.Time

	// LastSeen is when the session last made a request
	LastSeen time.Time
}

// NewSession creates a new Session with the given ID.
// CreatedAt and LastSeen are set to the current time.
func NewSession(id string) Session {
	now := time.Now()
	return Session{
		ID:        id,
		CreatedAt: now,
		LastSeen:  now,
	}
}

// Touched returns a copy of the session with LastSeen set to the current time.
func (s Session) Touched() Session {
	s.LastSeen = time.Now()
	return s
}

// ExpiredAfter returns true if the session has been inactive longer than ttl.
func (s Session) ExpiredAfter(ttl time.Duration) bool {
	return time.Since(s.LastSeen) > ttl
}

// IdleTime returns how long the session has been inactive.
func (s Session) IdleTime() time.Duration {
	return time.Since(s.LastSeen)
}
