package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"

	"infernalforge/core"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIEngineConfig holds the settings for an OpenAIEngine.
type OpenAIEngineConfig struct {
	APIKey string

	// Model is the image model name, e.g. "dall-e-3".
	Model string

	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string
}

// OpenAIEngine backs the Engine contract with the OpenAI images API. It is
// selected with DISPATCH_BACKEND=openai and exists so the gateway can run
// without a local inference service.
//
// The images API accepts no seed, so the returned ref carries the requested
// seed when one was given and a locally drawn one otherwise; it identifies
// the artifact but does not make the generation reproducible.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	sink   ArtifactSink
	logger *zap.Logger
}

// NewOpenAIEngine creates an OpenAIEngine.
func NewOpenAIEngine(cfg OpenAIEngineConfig, sink ArtifactSink, logger *zap.Logger) *OpenAIEngine {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		sink:   sink,
		logger: logger,
	}
}

// Generate requests one base64-encoded image and persists it in the sink.
func (e *OpenAIEngine) Generate(ctx context.Context, sessionID string, params core.GenerationParams) (core.ArtifactRef, error) {
	resp, err := e.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         params.Prompt,
		Model:          e.model,
		N:              1,
		Size:           fmt.Sprintf("%dx%d", params.Width, params.Height),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return core.ArtifactRef{}, mapOpenAIError(ctx, err)
	}
	if len(resp.Data) == 0 {
		return core.ArtifactRef{}, &core.DispatchError{Reason: "empty image response"}
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return core.ArtifactRef{}, &core.DispatchError{Reason: "decode image data", Err: err}
	}

	localID := uuid.New().String()
	size, err := e.sink.Save(sessionID, localID, bytes.NewReader(raw))
	if err != nil {
		return core.ArtifactRef{}, &core.DispatchError{Reason: "persist artifact", Err: err}
	}

	seed := int64(0)
	if params.Seed != nil {
		seed = *params.Seed
	} else {
		seed = rand.Int64N(core.MaxSeed + 1)
	}

	e.logger.Debug("openai artifact stored",
		zap.String("file_id", localID),
		zap.Int64("bytes", size),
	)
	return core.ArtifactRef{FileID: localID, Seed: seed}, nil
}

// Healthy verifies the API key by listing models.
func (e *OpenAIEngine) Healthy(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return mapOpenAIError(ctx, err)
	}
	return nil
}

// mapOpenAIError classifies go-openai failures onto the core taxonomy.
func mapOpenAIError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.ErrDispatchTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			return core.ErrAuthFailure
		}
		return &core.DispatchError{Reason: apiErr.Message, Err: err}
	}
	return &core.DispatchError{Reason: "request failed", Err: err}
}
