package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"infernalforge/core"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// authHeader is the shared-secret header the inference service expects.
const authHeader = "X-Auth-Token"

// HTTPEngineConfig holds the settings for an HTTPEngine.
type HTTPEngineConfig struct {
	// BaseURL is the inference service root, e.g. "http://localhost:5001".
	BaseURL string

	// AuthToken is sent as X-Auth-Token on every request.
	AuthToken string
}

// HTTPEngine dispatches generations to the inference service over HTTP:
// POST /generate to start, then GET /output/{file_id} to pull the finished
// image into the local artifact sink. The remote file id never leaves this
// package; callers see a freshly minted local id.
type HTTPEngine struct {
	baseURL   string
	authToken string
	client    *http.Client
	sink      ArtifactSink
	logger    *zap.Logger
}

// NewHTTPEngine creates an HTTPEngine. The client carries no timeout of its
// own; the caller's context deadline bounds each call.
func NewHTTPEngine(cfg HTTPEngineConfig, sink ArtifactSink, logger *zap.Logger) *HTTPEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPEngine{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		authToken: cfg.AuthToken,
		client:    &http.Client{},
		sink:      sink,
		logger:    logger,
	}
}

// generateRequest is the wire body for POST /generate.
type generateRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"num_inference_steps"`
	Seed   *int64 `json:"seed,omitempty"`
	UserID string `json:"user_id"`
}

// generateResponse is the wire body for a successful POST /generate.
type generateResponse struct {
	FileID string `json:"file_id"`
	Seed   int64  `json:"seed"`
}

// errorResponse is the wire body the service returns on failure.
type errorResponse struct {
	Error string `json:"error"`
}

// Generate runs one generation end to end: start it, wait for the service's
// synchronous reply, and stream the resulting image into the sink.
func (e *HTTPEngine) Generate(ctx context.Context, sessionID string, params core.GenerationParams) (core.ArtifactRef, error) {
	body, err := json.Marshal(generateRequest{
		Prompt: params.Prompt,
		Width:  params.Width,
		Height: params.Height,
		Steps:  params.Steps,
		Seed:   params.Seed,
		UserID: sessionID,
	})
	if err != nil {
		return core.ArtifactRef{}, &core.DispatchError{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return core.ArtifactRef{}, &core.DispatchError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authHeader, e.authToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return core.ArtifactRef{}, mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.ArtifactRef{}, e.mapStatusError(resp)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.ArtifactRef{}, &core.DispatchError{Reason: "decode response", Err: err}
	}
	if result.FileID == "" {
		return core.ArtifactRef{}, &core.DispatchError{Reason: "response missing file_id"}
	}

	localID, err := e.download(ctx, sessionID, result.FileID)
	if err != nil {
		return core.ArtifactRef{}, err
	}

	return core.ArtifactRef{FileID: localID, Seed: result.Seed}, nil
}

// download pulls the finished image from the service and persists it under a
// new local file id.
func (e *HTTPEngine) download(ctx context.Context, sessionID, remoteFileID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/output/"+remoteFileID, nil)
	if err != nil {
		return "", &core.DispatchError{Reason: "build download request", Err: err}
	}
	req.Header.Set(authHeader, e.authToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", e.mapStatusError(resp)
	}

	localID := uuid.New().String()
	size, err := e.sink.Save(sessionID, localID, resp.Body)
	if err != nil {
		return "", &core.DispatchError{Reason: "persist artifact", Err: err}
	}

	e.logger.Debug("artifact downloaded",
		zap.String("file_id", localID),
		zap.Int64("bytes", size),
	)
	return localID, nil
}

// Healthy probes the inference service's /health endpoint.
func (e *HTTPEngine) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return &core.DispatchError{Reason: "build health request", Err: err}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &core.DispatchError{Reason: fmt.Sprintf("health returned %d", resp.StatusCode)}
	}
	return nil
}

// mapStatusError turns a non-200 service response into a taxonomy error.
// The service's error text is surfaced verbatim when present.
func (e *HTTPEngine) mapStatusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return core.ErrAuthFailure
	}

	var wire errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&wire); err == nil && wire.Error != "" {
		return &core.DispatchError{Reason: wire.Error}
	}
	return &core.DispatchError{Reason: fmt.Sprintf("service returned %d", resp.StatusCode)}
}

// mapTransportError classifies client-side failures. A context deadline
// expiring mid-flight is the timeout case; everything else is a dispatch
// failure.
func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.ErrDispatchTimeout
	}
	return &core.DispatchError{Reason: "request failed", Err: err}
}
