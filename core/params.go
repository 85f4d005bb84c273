package core

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Generation parameter bounds. These mirror the hard constraints of the
// downstream diffusion engine; requests outside them are rejected before
// any work is admitted.
const (
	// MaxPromptLength is the maximum accepted prompt length in characters.
	MaxPromptLength = 200

	// MinDimension and MaxDimension bound image width and height in pixels.
	MinDimension = 64
	MaxDimension = 1024

	// DimensionAlignment is the required multiple for width and height.
	// The engine's latent space works in 8-pixel blocks.
	DimensionAlignment = 8

	// MinSteps and MaxSteps bound the number of denoising steps.
	MinSteps = 1
	MaxSteps = 100

	// MaxSeed is the largest accepted seed value (32-bit unsigned range).
	MaxSeed = int64(math.MaxUint32)
)

// promptCharset restricts prompts to the character set the engine accepts.
var promptCharset = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?()]+$`)

// GenerationRequest is the raw, client-supplied shape of a generation
// request. Pointer fields distinguish "absent" from zero so configured
// defaults can be applied during validation.
type GenerationRequest struct {
	Prompt string `json:"prompt"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
	Steps  *int   `json:"num_inference_steps,omitempty"`
	Seed   *int64 `json:"seed,omitempty"`
}

// GenerationParams is a validated, normalized parameter set ready for
// dispatch. Produced only by ValidateParams.
type GenerationParams struct {
	Prompt string
	Width  int
	Height int
	Steps  int

	// Seed is nil when the caller wants a random seed chosen by the engine.
	Seed *int64
}

// ParamDefaults supplies fallback values for fields the client omitted.
// Typically populated from configuration.
type ParamDefaults struct {
	Width  int
	Height int
	Steps  int
	Seed   *int64
}

// ValidateParams checks and normalizes a raw generation request.
// Omitted fields fall back to the provided defaults; defaults are validated
// the same way as client input. Returns a *ValidationError identifying the
// offending field on failure. No side effects.
func ValidateParams(req GenerationRequest, defaults ParamDefaults) (GenerationParams, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return GenerationParams{}, &ValidationError{Field: "prompt", Reason: "prompt is required"}
	}
	if len(prompt) > MaxPromptLength {
		return GenerationParams{}, &ValidationError{
			Field:  "prompt",
			Reason: fmt.Sprintf("prompt too long (max %d characters)", MaxPromptLength),
		}
	}
	if !promptCharset.MatchString(prompt) {
		return GenerationParams{}, &ValidationError{Field: "prompt", Reason: "prompt contains invalid characters"}
	}

	width := defaults.Width
	if req.Width != nil {
		width = *req.Width
	}
	if err := validateDimension("width", width); err != nil {
		return GenerationParams{}, err
	}

	height := defaults.Height
	if req.Height != nil {
		height = *req.Height
	}
	if err := validateDimension("height", height); err != nil {
		return GenerationParams{}, err
	}

	steps := defaults.Steps
	if req.Steps != nil {
		steps = *req.Steps
	}
	if steps < MinSteps || steps > MaxSteps {
		return GenerationParams{}, &ValidationError{
			Field:  "num_inference_steps",
			Reason: fmt.Sprintf("steps must be between %d and %d", MinSteps, MaxSteps),
		}
	}

	seed := defaults.Seed
	if req.Seed != nil {
		seed = req.Seed
	}
	if seed != nil && (*seed < 0 || *seed > MaxSeed) {
		return GenerationParams{}, &ValidationError{
			Field:  "seed",
			Reason: fmt.Sprintf("seed must be between 0 and %d", MaxSeed),
		}
	}

	params := GenerationParams{
		Prompt: prompt,
		Width:  width,
		Height: height,
		Steps:  steps,
	}
	if seed != nil {
		s := *seed
		params.Seed = &s
	}
	return params, nil
}

// validateDimension checks one image dimension against the engine bounds.
func validateDimension(field string, value int) error {
	if value < MinDimension || value > MaxDimension {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%s must be between %d and %d", field, MinDimension, MaxDimension),
		}
	}
	if value%DimensionAlignment != 0 {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%s must be a multiple of %d", field, DimensionAlignment),
		}
	}
	return nil
}
