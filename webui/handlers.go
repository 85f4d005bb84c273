package webui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"infernalforge/core"
	"infernalforge/jobs"

	"go.uber.org/zap"
)

// Submitter runs the admission pipeline for one generation request.
// Implemented by admission.Controller.
type Submitter interface {
	Submit(ctx context.Context, sessionID string, req core.GenerationRequest) (jobs.Job, error)
	Healthy(ctx context.Context) error
}

// JobGetter resolves a job id for its owning session.
// Implemented by jobs.Tracker.
type JobGetter interface {
	Get(jobID, sessionID string) (jobs.Job, error)
}

// ArtifactFetcher streams a completed artifact for its owning session.
// Implemented by artifacts.Proxy.
type ArtifactFetcher interface {
	Fetch(fileID, sessionID string) (io.ReadSeekCloser, jobs.Job, error)
}

// Handlers holds the gateway's HTTP handlers and their collaborators.
type Handlers struct {
	submitter Submitter
	getter    JobGetter
	fetcher   ArtifactFetcher
	sessions  *SessionStore
	cookieCfg CookieConfig
	logger    *zap.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	submitter Submitter,
	getter JobGetter,
	fetcher ArtifactFetcher,
	sessions *SessionStore,
	cookieCfg CookieConfig,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		submitter: submitter,
		getter:    getter,
		fetcher:   fetcher,
		sessions:  sessions,
		cookieCfg: cookieCfg,
		logger:    logger,
	}
}

// ensureSession resolves the caller's session from the cookie, minting a new
// one on the first request or when the old session expired. The (possibly
// new) cookie is set on the response.
func (h *Handlers) ensureSession(w http.ResponseWriter, r *http.Request) (core.Session, error) {
	if id := ReadSessionID(r, h.cookieCfg.Name); id != "" {
		if session, err := h.sessions.Touch(id); err == nil {
			return session, nil
		}
	}

	session, err := h.sessions.Create()
	if err != nil {
		return core.Session{}, err
	}

	cookie, err := NewSessionCookie(session.ID, h.cookieCfg)
	if err != nil {
		return core.Session{}, err
	}
	http.SetCookie(w, cookie)
	return session, nil
}

// HandleGenerate serves POST /generate: decode, run the admission pipeline,
// and report the settled job.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	session, err := h.ensureSession(w, r)
	if err != nil {
		h.logger.Error("session setup failed", zap.Error(err))
		writeError(w, errors.New("internal error"))
		return
	}

	var req core.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, &core.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	job, err := h.submitter.Submit(r.Context(), session.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  job.ID,
		"file_id": job.ArtifactID,
		"seed":    job.Seed,
	})
}

// HandleOutput serves GET /output/{fileId}: stream the PNG to its owner.
// Unknown, foreign, unfinished, and expired ids all answer 404.
func (h *Handlers) HandleOutput(w http.ResponseWriter, r *http.Request) {
	session, err := h.ensureSession(w, r)
	if err != nil {
		h.logger.Error("session setup failed", zap.Error(err))
		writeError(w, errors.New("internal error"))
		return
	}

	fileID := r.PathValue("fileId")
	reader, _, err := h.fetcher.Fetch(fileID, session.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("artifact stream interrupted",
			zap.String("file_id", fileID),
			zap.Error(err),
		)
	}
}

// HandleStatus serves GET /status/{jobId}: the job's state for its owner.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	session, err := h.ensureSession(w, r)
	if err != nil {
		h.logger.Error("session setup failed", zap.Error(err))
		writeError(w, errors.New("internal error"))
		return
	}

	job, err := h.getter.Get(r.PathValue("jobId"), session.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]any{
		"job_id":     job.ID,
		"status":     job.State.String(),
		"created_at": job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.State == jobs.StateCompleted {
		body["file_id"] = job.ArtifactID
		body["seed"] = job.Seed
	}
	if job.Error != "" {
		body["error"] = job.Error
	}
	writeJSON(w, http.StatusOK, body)
}

// HandleHealth serves GET /health: gateway liveness plus a reachability
// probe of the inference collaborator.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, inference := "ok", "ok"
	if err := h.submitter.Healthy(ctx); err != nil {
		status, inference = "degraded", "unreachable"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"inference": inference,
	})
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps a pipeline error onto the HTTP surface. The mapping keeps
// 404 uniform for unknown and foreign ids, and distinguishes
// client-correctable rejections (400, 429) from upstream faults (502, 504).
func writeError(w http.ResponseWriter, err error) {
	var ve *core.ValidationError
	var re *core.RateLimitError
	var de *core.DispatchError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error()})
	case errors.As(err, &re):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       re.Error(),
			"retry_after": int(re.RetryAfter.Seconds() + 0.5),
		})
	case errors.Is(err, core.ErrConcurrencyExceeded):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, core.ErrDispatchTimeout):
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": err.Error()})
	case errors.Is(err, core.ErrAuthFailure), errors.As(err, &de):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}
