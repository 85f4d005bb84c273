package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ArtifactRemover drops the backing file of an expired artifact.
// Implemented by the artifact store.
type ArtifactRemover interface {
	Remove(sessionID, fileID string) error
}

// Sweeper periodically expires terminal jobs past retention and removes
// their artifacts. It talks to the Tracker only through SweepExpired, so the
// hot admission path never contends with sweep bookkeeping.
type Sweeper struct {
	tracker   *Tracker
	artifacts ArtifactRemover
	interval  time.Duration
	logger    *zap.Logger
}

// NewSweeper creates a Sweeper. artifacts may be nil when no artifact
// cleanup is wanted (tests).
func NewSweeper(tracker *Tracker, artifacts ArtifactRemover, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		tracker:   tracker,
		artifacts: artifacts,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs the sweep loop in a background goroutine until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.SweepOnce(now)
			}
		}
	}()
}

// SweepOnce performs a single sweep pass. Exposed for tests and for a final
// pass during shutdown.
func (s *Sweeper) SweepOnce(now time.Time) int {
	expired := s.tracker.SweepExpired(now)
	for _, job := range expired {
		if job.ArtifactID == "" || s.artifacts == nil {
			continue
		}
		if err := s.artifacts.Remove(job.SessionID, job.ArtifactID); err != nil {
			s.logger.Warn("failed to remove expired artifact",
				zap.String("job_id", job.ID),
				zap.String("file_id", job.ArtifactID),
				zap.Error(err),
			)
		}
	}
	return len(expired)
}
