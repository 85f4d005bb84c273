package jobs

import (
	"fmt"
	"sync"
	"time"

	"infernalforge/core"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrIllegalTransition wraps a rejected state change. It signals a caller
// bug: the hot path only ever performs Pending→Dispatched and
// Dispatched→terminal.
type ErrIllegalTransition struct {
	JobID string
	From  State
	To    State
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("job %s: illegal transition %s -> %s", e.JobID, e.From, e.To)
}

// Tracker owns live job state, keyed by job id with an index from artifact
// file id. All lookups fold the session ownership check into the result:
// unknown ids and foreign ids are indistinguishable (core.ErrNotFound), so
// nothing about other sessions' jobs can be probed.
type Tracker struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	byFile    map[string]string // artifact file id -> job id
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewTracker creates a Tracker. Terminal jobs are kept for the retention
// duration before SweepExpired moves them to Expired and drops them.
func NewTracker(retention time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		jobs:      make(map[string]*Job),
		byFile:    make(map[string]string),
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Create registers a new Pending job for the session and returns a copy.
// The job id is generated here, at admission time.
func (t *Tracker) Create(sessionID string, params core.GenerationParams) Job {
	job := &Job{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Params:    params,
		State:     StatePending,
		CreatedAt: t.now(),
	}

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()

	t.logger.Debug("job created",
		zap.String("job_id", job.ID),
		zap.String("session_id", sessionID),
	)
	return *job
}

// MarkDispatched moves a Pending job to Dispatched.
func (t *Tracker) MarkDispatched(jobID string) (Job, error) {
	return t.transition(jobID, StateDispatched, nil)
}

// MarkCompleted moves a Dispatched job to Completed and records its artifact.
func (t *Tracker) MarkCompleted(jobID string, ref core.ArtifactRef) (Job, error) {
	job, err := t.transition(jobID, StateCompleted, func(j *Job) {
		j.ArtifactID = ref.FileID
		j.Seed = ref.Seed
		j.CompletedAt = t.now()
	})
	if err != nil {
		return job, err
	}

	t.mu.Lock()
	t.byFile[ref.FileID] = jobID
	t.mu.Unlock()
	return job, nil
}

// MarkFailed moves a Dispatched job to Failed with the cause.
func (t *Tracker) MarkFailed(jobID string, cause error) (Job, error) {
	return t.transition(jobID, StateFailed, func(j *Job) {
		if cause != nil {
			j.Error = cause.Error()
		}
		j.CompletedAt = t.now()
	})
}

// MarkTimedOut moves a Dispatched job to TimedOut.
func (t *Tracker) MarkTimedOut(jobID string) (Job, error) {
	return t.transition(jobID, StateTimedOut, func(j *Job) {
		j.Error = core.ErrDispatchTimeout.Error()
		j.CompletedAt = t.now()
	})
}

// Get returns a copy of the job if it exists and belongs to the session;
// otherwise core.ErrNotFound.
func (t *Tracker) Get(jobID, sessionID string) (Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[jobID]
	if !ok || job.SessionID != sessionID {
		return Job{}, core.ErrNotFound
	}
	return *job, nil
}

// ByArtifact returns a copy of the job owning the artifact file id if it
// belongs to the session; otherwise core.ErrNotFound.
func (t *Tracker) ByArtifact(fileID, sessionID string) (Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	jobID, ok := t.byFile[fileID]
	if !ok {
		return Job{}, core.ErrNotFound
	}
	job, ok := t.jobs[jobID]
	if !ok || job.SessionID != sessionID {
		return Job{}, core.ErrNotFound
	}
	return *job, nil
}

// SweepExpired moves terminal jobs whose retention has elapsed to Expired
// and removes them from the tracker. Returns copies of the expired jobs so
// the caller can drop their backing artifacts. Only terminal jobs are
// touched; the sweep never races the hot path's transitions.
func (t *Tracker) SweepExpired(now time.Time) []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []Job
	for id, job := range t.jobs {
		if !job.State.Terminal() {
			continue
		}
		if now.Sub(job.CompletedAt) < t.retention {
			continue
		}
		job.State = StateExpired
		expired = append(expired, *job)
		delete(t.jobs, id)
		if job.ArtifactID != "" {
			delete(t.byFile, job.ArtifactID)
		}
	}

	if len(expired) > 0 {
		t.logger.Info("expired jobs swept", zap.Int("count", len(expired)))
	}
	return expired
}

// Count returns the number of live (not yet expired) jobs.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// transition applies a guarded state change and returns the updated copy.
func (t *Tracker) transition(jobID string, to State, mutate func(*Job)) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return Job{}, core.ErrNotFound
	}
	if !canTransition(job.State, to) {
		return *job, &ErrIllegalTransition{JobID: jobID, From: job.State, To: to}
	}
	job.State = to
	if mutate != nil {
		mutate(job)
	}
	return *job, nil
}
