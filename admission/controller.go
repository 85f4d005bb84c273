package admission

import (
	"context"
	"errors"
	"time"

	"infernalforge/core"
	"infernalforge/dispatch"
	"infernalforge/jobs"

	"go.uber.org/zap"
)

// History records finished jobs for auditing. Implementations must be cheap
// to call from the request path (the db adapter writes asynchronously).
type History interface {
	Record(job jobs.Job)
}

// Controller walks one generation request through the full admission
// pipeline: validate, rate-limit, take a concurrency permit, track the job,
// dispatch, and settle the job in a terminal state. Pre-dispatch rejections
// create no job and hold no permit.
type Controller struct {
	defaults core.ParamDefaults
	limiter  *RateLimiter
	gate     *ConcurrencyGate
	tracker  *jobs.Tracker
	engine   dispatch.Engine
	history  History
	timeout  time.Duration
	logger   *zap.Logger
}

// NewController creates a Controller. history may be nil to disable the
// audit log.
func NewController(
	defaults core.ParamDefaults,
	limiter *RateLimiter,
	gate *ConcurrencyGate,
	tracker *jobs.Tracker,
	engine dispatch.Engine,
	history History,
	timeout time.Duration,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		defaults: defaults,
		limiter:  limiter,
		gate:     gate,
		tracker:  tracker,
		engine:   engine,
		history:  history,
		timeout:  timeout,
		logger:   logger,
	}
}

// Submit processes one generation request for the session. On success the
// returned job is Completed and carries its artifact id and seed; on failure
// the error classifies the rejection or the terminal failure.
//
// The inference call runs under its own deadline detached from the request
// context: once a job is dispatched, the client going away does not abandon
// it, and its result stays retrievable for the session.
func (c *Controller) Submit(ctx context.Context, sessionID string, req core.GenerationRequest) (jobs.Job, error) {
	params, err := core.ValidateParams(req, c.defaults)
	if err != nil {
		return jobs.Job{}, err
	}

	if err := c.limiter.TryAdmit(sessionID); err != nil {
		c.logger.Debug("request rate limited", zap.String("session_id", sessionID))
		return jobs.Job{}, err
	}

	permit, err := c.gate.Acquire(sessionID)
	if err != nil {
		c.logger.Debug("concurrency cap reached", zap.String("session_id", sessionID))
		return jobs.Job{}, err
	}
	defer permit.Release()

	job := c.tracker.Create(sessionID, params)
	if _, err := c.tracker.MarkDispatched(job.ID); err != nil {
		return jobs.Job{}, err
	}

	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	ref, genErr := c.engine.Generate(dispatchCtx, sessionID, params)
	elapsed := time.Since(start)

	var settled jobs.Job
	switch {
	case genErr == nil:
		settled, err = c.tracker.MarkCompleted(job.ID, ref)
	case errors.Is(genErr, core.ErrDispatchTimeout):
		settled, err = c.tracker.MarkTimedOut(job.ID)
	default:
		settled, err = c.tracker.MarkFailed(job.ID, genErr)
	}
	if err != nil {
		// The transition cannot legally fail here; surface it loudly.
		c.logger.Error("job settlement failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return jobs.Job{}, err
	}

	c.logger.Info("job settled",
		zap.String("job_id", settled.ID),
		zap.String("state", settled.State.String()),
		zap.Duration("elapsed", elapsed),
	)

	if c.history != nil {
		c.history.Record(settled)
	}
	return settled, genErr
}

// Healthy reports whether the inference backend is reachable.
func (c *Controller) Healthy(ctx context.Context) error {
	return c.engine.Healthy(ctx)
}
