package core

// ArtifactRef identifies a generated artifact held by the artifact store.
// Every ref belongs to exactly one completed job.
type ArtifactRef struct {
	// FileID is the opaque identifier clients use to retrieve the artifact.
	FileID string

	// Seed is the seed the engine actually used, for reproducibility.
	Seed int64
}
