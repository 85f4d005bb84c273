package artifacts

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"infernalforge/core"
	"infernalforge/jobs"
)

func completedJob(t *testing.T, tracker *jobs.Tracker, sessionID, fileID string) jobs.Job {
	t.Helper()
	job := tracker.Create(sessionID, core.GenerationParams{Prompt: "p", Width: 512, Height: 512, Steps: 50})
	if _, err := tracker.MarkDispatched(job.ID); err != nil {
		t.Fatalf("MarkDispatched failed: %v", err)
	}
	done, err := tracker.MarkCompleted(job.ID, core.ArtifactRef{FileID: fileID, Seed: 5})
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	return done
}

func TestProxy_FetchOwned(t *testing.T) {
	tracker := jobs.NewTracker(time.Minute, nil)
	store := newTestStore(t)
	proxy := NewProxy(tracker, store)

	job := completedJob(t, tracker, "sess-1", "file-1")
	store.Save("sess-1", "file-1", strings.NewReader("png-bytes"))

	r, got, err := proxy.Fetch("file-1", "sess-1")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer r.Close()

	if got.ID != job.ID {
		t.Errorf("expected job %s, got %s", job.ID, got.ID)
	}
	data, _ := io.ReadAll(r)
	if string(data) != "png-bytes" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestProxy_FetchForeignSession(t *testing.T) {
	tracker := jobs.NewTracker(time.Minute, nil)
	store := newTestStore(t)
	proxy := NewProxy(tracker, store)

	completedJob(t, tracker, "sess-owner", "file-1")
	store.Save("sess-owner", "file-1", strings.NewReader("x"))

	if _, _, err := proxy.Fetch("file-1", "sess-other"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign session, got %v", err)
	}
}

func TestProxy_FetchUnknown(t *testing.T) {
	tracker := jobs.NewTracker(time.Minute, nil)
	proxy := NewProxy(tracker, newTestStore(t))

	if _, _, err := proxy.Fetch("no-such-file", "sess-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProxy_FetchAfterExpiry(t *testing.T) {
	tracker := jobs.NewTracker(time.Minute, nil)
	store := newTestStore(t)
	proxy := NewProxy(tracker, store)

	completedJob(t, tracker, "sess-1", "file-1")
	store.Save("sess-1", "file-1", strings.NewReader("x"))

	// Sweep past retention, then remove the artifact as the sweeper would.
	expired := tracker.SweepExpired(time.Now().Add(2 * time.Minute))
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired job, got %d", len(expired))
	}
	if err := proxy.Expire("sess-1", "file-1"); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	if _, _, err := proxy.Fetch("file-1", "sess-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}
