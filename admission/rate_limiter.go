// Package admission implements the gateway's admission control: rate
// limiting, per-user concurrency capping, and the controller that walks a
// request from validation through dispatch to a terminal job state.
package admission

import (
	"context"
	"sync"
	"time"

	"infernalforge/core"
)

// rateWindow is a fixed-window admission counter for one scope. The window
// is re-armed (count reset, start moved to now) the first time it is
// consulted after the window duration has elapsed.
//
// Each window has its own mutex so unrelated users never serialize on a
// shared lock. TryAdmit locks the user window before the global window,
// always in that order.
type rateWindow struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// rearm resets the window if it has elapsed. Caller must hold w.mu.
func (w *rateWindow) rearm(now time.Time, window time.Duration) {
	if now.Sub(w.windowStart) >= window {
		w.windowStart = now
		w.count = 0
	}
}

// remaining returns the time left in the current window. Caller must hold
// w.mu and must have called rearm first, so the result is in (0, window].
func (w *rateWindow) remaining(now time.Time, window time.Duration) time.Duration {
	return window - now.Sub(w.windowStart)
}

// RateLimiter enforces per-user and global admission caps using fixed time
// windows. A request is admitted only when both the caller's window and the
// global window are below capacity; a rejection leaves both counts
// untouched (no partial increment).
type RateLimiter struct {
	mu     sync.Mutex // guards users map
	users  map[string]*rateWindow
	global *rateWindow

	userLimit   int
	globalLimit int
	window      time.Duration

	now func() time.Time // injectable clock for tests
}

// NewRateLimiter creates a RateLimiter.
//
// Parameters:
//   - userLimit: admissions per user per window (e.g., 3)
//   - globalLimit: admissions across all users per window (e.g., 10)
//   - window: window duration (e.g., time.Minute)
func NewRateLimiter(userLimit, globalLimit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		users:       make(map[string]*rateWindow),
		global:      &rateWindow{},
		userLimit:   userLimit,
		globalLimit: globalLimit,
		window:      window,
		now:         time.Now,
	}
}

// TryAdmit atomically checks and increments the caller's window and the
// global window. Admission requires both to be below capacity; on rejection
// neither count changes and the returned *core.RateLimitError carries the
// time remaining in whichever window is saturated.
//
// The check-and-increment is atomic with respect to concurrent callers:
// both windows are locked (user first, then global) for the duration of the
// decision.
func (l *RateLimiter) TryAdmit(userID string) error {
	user := l.userWindow(userID)
	now := l.now()

	user.mu.Lock()
	defer user.mu.Unlock()
	l.global.mu.Lock()
	defer l.global.mu.Unlock()

	user.rearm(now, l.window)
	l.global.rearm(now, l.window)

	if user.count >= l.userLimit {
		return &core.RateLimitError{
			Scope:      core.RateScopeUser,
			RetryAfter: user.remaining(now, l.window),
		}
	}
	if l.global.count >= l.globalLimit {
		return &core.RateLimitError{
			Scope:      core.RateScopeGlobal,
			RetryAfter: l.global.remaining(now, l.window),
		}
	}

	user.count++
	l.global.count++
	return nil
}

// userWindow returns the window for a user, creating it on first use.
func (l *RateLimiter) userWindow(userID string) *rateWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.users[userID]
	if !ok {
		w = &rateWindow{}
		l.users[userID] = w
	}
	return w
}

// Cleanup removes user windows whose window has fully elapsed, to bound
// memory for one-shot visitors. Returns the number of windows removed.
func (l *RateLimiter) Cleanup() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, w := range l.users {
		w.mu.Lock()
		stale := now.Sub(w.windowStart) >= l.window
		w.mu.Unlock()
		if stale {
			delete(l.users, id)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup periodically until ctx is cancelled.
func (l *RateLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// TrackedUsers returns the number of user windows currently held.
func (l *RateLimiter) TrackedUsers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
