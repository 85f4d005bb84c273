package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"infernalforge/core"
	"infernalforge/jobs"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	conn, err := NewSQLiteConnectionWithDefaults(path)
	if err != nil {
		t.Fatalf("open connection failed: %v", err)
	}

	repo := NewRepository(conn, 10, nil)
	t.Cleanup(func() { repo.Close(5 * time.Second) })
	return repo
}

func settledJob(state jobs.State) jobs.Job {
	created := time.Now().Add(-2 * time.Second)
	job := jobs.Job{
		ID:        "job-1",
		SessionID: "sess-1",
		Params: core.GenerationParams{
			Prompt: "a stone bridge",
			Width:  512,
			Height: 512,
			Steps:  50,
		},
		State:       state,
		CreatedAt:   created,
		CompletedAt: created.Add(1500 * time.Millisecond),
	}
	if state == jobs.StateCompleted {
		job.ArtifactID = "file-1"
		job.Seed = 42
	}
	if state == jobs.StateFailed {
		job.Error = "engine fault"
	}
	return job
}

func TestRepository_InsertAndQuery(t *testing.T) {
	repo := newTestRepository(t)

	rec := recordFromJob(settledJob(jobs.StateCompleted))
	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	records, err := repo.RecentBySession(context.Background(), "sess-1", 10)
	if err != nil {
		t.Fatalf("RecentBySession failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.JobID != "job-1" || got.Status != "completed" || got.FileID != "file-1" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Seed == nil || *got.Seed != 42 {
		t.Errorf("expected seed 42, got %v", got.Seed)
	}
	if got.DurationMS != 1500 {
		t.Errorf("expected duration 1500ms, got %d", got.DurationMS)
	}
}

func TestRepository_FailedJobRecord(t *testing.T) {
	repo := newTestRepository(t)

	rec := recordFromJob(settledJob(jobs.StateFailed))
	if rec.Status != "failed" || rec.ErrorMessage != "engine fault" {
		t.Errorf("unexpected projection: %+v", rec)
	}
	if rec.Seed != nil {
		t.Errorf("failed job without requested seed should have nil seed, got %v", rec.Seed)
	}
	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func TestRepository_RecordAsync(t *testing.T) {
	repo := newTestRepository(t)

	repo.Record(settledJob(jobs.StateCompleted))

	// The async writer flushes in the background; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		records, err := repo.RecentBySession(context.Background(), "sess-1", 10)
		if err != nil {
			t.Fatalf("RecentBySession failed: %v", err)
		}
		if len(records) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("async record never landed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRepository_SessionScopedQuery(t *testing.T) {
	repo := newTestRepository(t)

	a := settledJob(jobs.StateCompleted)
	b := settledJob(jobs.StateCompleted)
	b.ID, b.SessionID = "job-2", "sess-2"

	repo.Insert(context.Background(), recordFromJob(a))
	repo.Insert(context.Background(), recordFromJob(b))

	records, err := repo.RecentBySession(context.Background(), "sess-1", 10)
	if err != nil {
		t.Fatalf("RecentBySession failed: %v", err)
	}
	if len(records) != 1 || records[0].SessionID != "sess-1" {
		t.Errorf("query leaked foreign rows: %+v", records)
	}
}

func TestRepository_CountByStatus(t *testing.T) {
	repo := newTestRepository(t)

	repo.Insert(context.Background(), recordFromJob(settledJob(jobs.StateCompleted)))
	repo.Insert(context.Background(), recordFromJob(settledJob(jobs.StateFailed)))
	repo.Insert(context.Background(), recordFromJob(settledJob(jobs.StateFailed)))

	counts, err := repo.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts["completed"] != 1 || counts["failed"] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	version, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if dirty {
		t.Error("database left dirty")
	}
	if version == 0 {
		t.Error("expected a nonzero migration version")
	}
}
