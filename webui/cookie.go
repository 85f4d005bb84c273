package webui

import (
	"errors"
	"net/http"
)

// Cookie configuration defaults.
const (
	// SessionCookieName is the name of the anonymous session cookie.
	SessionCookieName = "session_id"

	// DefaultCookieMaxAge matches the default session TTL (24 hours).
	DefaultCookieMaxAge = 24 * 60 * 60 // seconds

	// DefaultCookiePath is the path for which the cookie is valid.
	DefaultCookiePath = "/"
)

// ErrEmptySessionID is returned when building a cookie with no session ID.
var ErrEmptySessionID = errors.New("session ID cannot be empty")

// CookieConfig holds security settings for the session cookie.
type CookieConfig struct {
	// Name is the cookie name (default: "session_id")
	Name string

	// MaxAge is the cookie lifetime in seconds
	MaxAge int

	// Secure restricts the cookie to HTTPS. False for local development.
	Secure bool

	// SameSite controls cross-site request behavior
	SameSite http.SameSite

	// Path restricts the cookie to a URL path prefix
	Path string
}

// DefaultCookieConfig returns a CookieConfig with secure defaults:
// HttpOnly is always set, SameSite is Lax so artifact links survive
// navigation, and Secure is off for plain-HTTP deployments.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     SessionCookieName,
		MaxAge:   DefaultCookieMaxAge,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Path:     DefaultCookiePath,
	}
}

// NewSessionCookie builds the session cookie for http.SetCookie.
// The cookie is always HttpOnly; sessions scope ownership and must not be
// readable from page scripts.
func NewSessionCookie(sessionID string, cfg CookieConfig) (*http.Cookie, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	name := cfg.Name
	if name == "" {
		name = SessionCookieName
	}
	path := cfg.Path
	if path == "" {
		path = DefaultCookiePath
	}

	return &http.Cookie{
		Name:     name,
		Value:    sessionID,
		Path:     path,
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}, nil
}

// ReadSessionID extracts the session ID from the request cookie.
// Returns an empty string when the cookie is absent.
func ReadSessionID(r *http.Request, name string) string {
	if name == "" {
		name = SessionCookieName
	}
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
