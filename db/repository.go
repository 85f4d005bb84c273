package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"infernalforge/jobs"

	"go.uber.org/zap"
)

// GenerationRecord is one row of the generation_history table: the audit
// trail of every job that reached a terminal state.
type GenerationRecord struct {
	ID           int64     // Auto-incremented primary key
	JobID        string    // Gateway job id
	SessionID    string    // Owning session
	Prompt       string    // Validated prompt text
	Width        int       // Image width in pixels
	Height       int       // Image height in pixels
	Steps        int       // Denoising steps
	Seed         *int64    // Seed used, nil when the job never completed
	FileID       string    // Artifact file id, empty unless completed
	Status       string    // Terminal state name: completed, failed, timed_out
	ErrorMessage string    // Failure description, empty on success
	DurationMS   int64     // Wall time from creation to settlement
	CreatedAt    time.Time // Row insertion time
}

// recordFromJob projects a settled job onto its audit row.
func recordFromJob(job jobs.Job) GenerationRecord {
	rec := GenerationRecord{
		JobID:        job.ID,
		SessionID:    job.SessionID,
		Prompt:       job.Params.Prompt,
		Width:        job.Params.Width,
		Height:       job.Params.Height,
		Steps:        job.Params.Steps,
		FileID:       job.ArtifactID,
		Status:       job.State.String(),
		ErrorMessage: job.Error,
	}
	if job.State == jobs.StateCompleted {
		seed := job.Seed
		rec.Seed = &seed
	} else if job.Params.Seed != nil {
		seed := *job.Params.Seed
		rec.Seed = &seed
	}
	if !job.CompletedAt.IsZero() {
		rec.DurationMS = job.CompletedAt.Sub(job.CreatedAt).Milliseconds()
	}
	return rec
}

// Repository provides the generation-history operations. Writes from the
// request path go through the async writer; reads are synchronous.
type Repository struct {
	conn   *sql.DB
	writer *AsyncWriter
	logger *zap.Logger
}

// NewRepository creates a Repository and starts its async writer.
// queueCapacity bounds the write buffer; zero uses the default.
func NewRepository(conn *sql.DB, queueCapacity int, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{conn: conn, logger: logger}
	r.writer = NewAsyncWriter(r.handleWrite, queueCapacity)
	r.writer.Start()
	return r
}

// Record queues a settled job for the audit log. Never blocks: a full queue
// drops the row with a warning rather than stalling admission.
func (r *Repository) Record(job jobs.Job) {
	if !r.writer.Write(recordFromJob(job)) {
		r.logger.Warn("audit queue full, dropping record",
			zap.String("job_id", job.ID),
		)
	}
}

// handleWrite processes one queued audit row.
func (r *Repository) handleWrite(op WriteOperation) error {
	rec, ok := op.Data.(GenerationRecord)
	if !ok {
		r.logger.Error("unexpected audit payload type")
		return nil
	}
	if err := r.Insert(context.Background(), rec); err != nil {
		r.logger.Error("audit insert failed",
			zap.String("job_id", rec.JobID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Insert writes one audit row synchronously.
func (r *Repository) Insert(ctx context.Context, rec GenerationRecord) error {
	query := `
		INSERT INTO generation_history (
			job_id, session_id, prompt, width, height, steps,
			seed, file_id, status, error_message, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var seed sql.NullInt64
	if rec.Seed != nil {
		seed = sql.NullInt64{Int64: *rec.Seed, Valid: true}
	}

	_, err := r.conn.ExecContext(ctx, query,
		rec.JobID,
		rec.SessionID,
		rec.Prompt,
		rec.Width,
		rec.Height,
		rec.Steps,
		seed,
		rec.FileID,
		rec.Status,
		rec.ErrorMessage,
		rec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert generation history: %w", err)
	}
	return nil
}

// RecentBySession returns the session's most recent audit rows, newest first.
func (r *Repository) RecentBySession(ctx context.Context, sessionID string, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, job_id, session_id, prompt, width, height, steps,
		       seed, file_id, status, error_message, duration_ms, created_at
		FROM generation_history
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.conn.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query generation history: %w", err)
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		var seed sql.NullInt64
		if err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.SessionID, &rec.Prompt,
			&rec.Width, &rec.Height, &rec.Steps,
			&seed, &rec.FileID, &rec.Status, &rec.ErrorMessage,
			&rec.DurationMS, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation history: %w", err)
		}
		if seed.Valid {
			s := seed.Int64
			rec.Seed = &s
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByStatus returns audit row counts grouped by terminal status.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM generation_history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count generation history: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Close drains the async queue and releases the database connection.
func (r *Repository) Close(timeout time.Duration) error {
	if !r.writer.StopWithTimeout(timeout) {
		r.logger.Warn("audit queue drain timed out",
			zap.Int("pending", r.writer.Pending()),
		)
	}
	return r.conn.Close()
}
