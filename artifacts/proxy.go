package artifacts

import (
	"io"

	"infernalforge/core"
	"infernalforge/jobs"
)

// JobLookup resolves an artifact file id to its owning job, enforcing
// session ownership. Implemented by jobs.Tracker.
type JobLookup interface {
	ByArtifact(fileID, sessionID string) (jobs.Job, error)
}

// Proxy gates artifact retrieval: a file is served only to the session that
// owns it, and only once its job completed. Every other case collapses to
// core.ErrNotFound so responses never reveal whether an id exists.
type Proxy struct {
	lookup JobLookup
	store  *Store
}

// NewProxy creates a Proxy.
func NewProxy(lookup JobLookup, store *Store) *Proxy {
	return &Proxy{lookup: lookup, store: store}
}

// Fetch returns a reader over the artifact and its owning job. The caller
// must close the reader.
func (p *Proxy) Fetch(fileID, sessionID string) (io.ReadSeekCloser, jobs.Job, error) {
	job, err := p.lookup.ByArtifact(fileID, sessionID)
	if err != nil {
		return nil, jobs.Job{}, err
	}
	if job.State != jobs.StateCompleted {
		return nil, jobs.Job{}, core.ErrNotFound
	}

	r, err := p.store.Open(sessionID, fileID)
	if err != nil {
		return nil, jobs.Job{}, err
	}
	return r, job, nil
}

// Expire removes the backing file for a swept job's artifact.
func (p *Proxy) Expire(sessionID, fileID string) error {
	return p.store.Remove(sessionID, fileID)
}
