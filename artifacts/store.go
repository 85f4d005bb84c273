// Package artifacts persists generated images on disk, scoped to the owning
// session, and serves them back through an ownership-checked proxy. Files
// are write-once: an id is never reused and never overwritten.
package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"infernalforge/core"

	"go.uber.org/zap"
)

// artifactExt is the on-disk extension; the engine only produces PNGs.
const artifactExt = ".png"

// validIdent matches session and file ids: UUIDs and URL-safe base64. Both
// id kinds are minted by this process, so anything else in a path component
// is a traversal attempt.
var validIdent = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store writes artifacts under root/<sessionID>/<fileID>.png.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: dir, logger: logger}, nil
}

// path builds the backing file path, rejecting ids that could escape root.
func (s *Store) path(sessionID, fileID string) (string, error) {
	if !validIdent.MatchString(sessionID) || !validIdent.MatchString(fileID) {
		return "", core.ErrNotFound
	}
	return filepath.Join(s.root, sessionID, fileID+artifactExt), nil
}

// Save persists the artifact bytes write-once and returns the byte count.
// A second save under the same ids fails; ids are minted fresh per artifact.
func (s *Store) Save(sessionID, fileID string, r io.Reader) (int64, error) {
	path, err := s.path(sessionID, fileID)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create session dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create artifact file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("close artifact: %w", err)
	}

	s.logger.Debug("artifact saved",
		zap.String("session_id", sessionID),
		zap.String("file_id", fileID),
		zap.Int64("bytes", size),
	)
	return size, nil
}

// Open returns a reader over the stored artifact, or core.ErrNotFound when
// no such file exists for the session.
func (s *Store) Open(sessionID, fileID string) (io.ReadSeekCloser, error) {
	path, err := s.path(sessionID, fileID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Remove deletes the backing file. Missing files are not an error; expiry
// and manual cleanup may race.
func (s *Store) Remove(sessionID, fileID string) error {
	path, err := s.path(sessionID, fileID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// Purge deletes every stored artifact, keeping the root directory. Used at
// startup when CLEAN_OUTPUT_ON_START is set.
func (s *Store) Purge() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read artifact root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			return fmt.Errorf("purge %s: %w", entry.Name(), err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("output directory purged", zap.Int("entries", removed))
	}
	return nil
}
