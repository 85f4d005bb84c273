// Package jobs owns the lifecycle of generation jobs: the guarded state
// machine, the tracker that holds live jobs keyed by id and session, and the
// background sweeper that expires terminal jobs past retention.
package jobs

import (
	"time"

	"infernalforge/core"
)

// State is a job lifecycle state. Transitions are monotonic:
//
//	Pending → Dispatched → {Completed | Failed | TimedOut} → Expired
//
// Nothing else is reachable; in particular a terminal job never re-enters
// the hot path, and only the expiry sweep produces Expired.
type State int

const (
	StatePending State = iota
	StateDispatched
	StateCompleted
	StateFailed
	StateTimedOut
	StateExpired
)

// String returns the lowercase wire name of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDispatched:
		return "dispatched"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the hot path (Completed, Failed,
// or TimedOut). Expired is past terminal and not included.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// canTransition reports whether from → to is a legal transition.
func canTransition(from, to State) bool {
	switch {
	case from == StatePending && to == StateDispatched:
		return true
	case from == StateDispatched && to.Terminal():
		return true
	case from.Terminal() && to == StateExpired:
		return true
	default:
		return false
	}
}

// Job is one generation request's unit of tracked work. Jobs are owned by
// the Tracker; callers only ever see copies.
type Job struct {
	ID        string
	SessionID string
	Params    core.GenerationParams
	State     State
	CreatedAt time.Time

	// CompletedAt is zero until the job reaches a terminal state.
	CompletedAt time.Time

	// ArtifactID and Seed are set on successful completion.
	ArtifactID string
	Seed       int64

	// Error holds the failure description for Failed jobs.
	Error string
}
