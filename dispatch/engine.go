// Package dispatch forwards admitted generation requests to an inference
// backend. The gateway treats the backend as opaque: an Engine turns
// validated parameters into a locally stored artifact reference, and every
// failure is mapped onto the gateway's error taxonomy so callers never see
// backend-specific errors.
package dispatch

import (
	"context"
	"io"

	"infernalforge/core"
)

// Engine is the inference backend contract. Generate blocks for the duration
// of one generation; the caller bounds it with a context deadline. A nil
// error means the artifact bytes are already persisted in the sink under the
// returned ref's FileID.
//
// Errors are drawn from the core taxonomy:
//   - core.ErrAuthFailure: the backend rejected the gateway's credentials
//   - core.ErrDispatchTimeout: the deadline elapsed mid-flight
//   - *core.DispatchError: the backend reported a failure
type Engine interface {
	Generate(ctx context.Context, sessionID string, params core.GenerationParams) (core.ArtifactRef, error)
	Healthy(ctx context.Context) error
}

// ArtifactSink persists generated image bytes, scoped to the owning session.
// Implemented by the artifact store.
type ArtifactSink interface {
	Save(sessionID, fileID string, r io.Reader) (int64, error)
}
