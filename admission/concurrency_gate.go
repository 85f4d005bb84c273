package admission

import (
	"sync"

	"infernalforge/core"
)

// ConcurrencyGate caps the number of simultaneously in-flight jobs per user.
// Acquire never blocks: when a user is at the cap the request is rejected
// immediately so admission stays bounded and synchronous.
type ConcurrencyGate struct {
	mu       sync.Mutex
	inFlight map[string]int
	limit    int
}

// NewConcurrencyGate creates a gate with the given per-user permit count.
func NewConcurrencyGate(limit int) *ConcurrencyGate {
	return &ConcurrencyGate{
		inFlight: make(map[string]int),
		limit:    limit,
	}
}

// Acquire takes one permit for the user, failing fast with
// core.ErrConcurrencyExceeded when none is free. The returned Permit must be
// released exactly once when the job reaches a terminal state; Release is
// idempotent so a deferred call is safe on every path.
func (g *ConcurrencyGate) Acquire(userID string) (*Permit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[userID] >= g.limit {
		return nil, core.ErrConcurrencyExceeded
	}
	g.inFlight[userID]++
	return &Permit{gate: g, userID: userID}, nil
}

// InFlight returns the user's current in-flight job count.
func (g *ConcurrencyGate) InFlight(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[userID]
}

// Limit returns the per-user permit count.
func (g *ConcurrencyGate) Limit() int {
	return g.limit
}

// Permit is a held concurrency slot. It releases at most once regardless of
// how many times Release is called, so a permit can never be double-freed by
// overlapping error paths.
type Permit struct {
	gate   *ConcurrencyGate
	userID string
	once   sync.Once
}

// Release returns the permit to the gate. Safe to call more than once;
// only the first call has effect.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.gate.mu.Lock()
		defer p.gate.mu.Unlock()

		if n := p.gate.inFlight[p.userID]; n <= 1 {
			delete(p.gate.inFlight, p.userID)
		} else {
			p.gate.inFlight[p.userID] = n - 1
		}
	})
}
