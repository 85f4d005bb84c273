package core

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the admission and retrieval paths.
var (
	// ErrNotFound is returned for unknown job or artifact identifiers.
	// Lookups merge "does not exist" and "owned by another session" into
	// this single error so responses never leak existence information.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyExceeded is returned when a user already has the
	// maximum number of jobs in flight.
	ErrConcurrencyExceeded = errors.New("too many concurrent jobs")

	// ErrAuthFailure is returned when the inference service rejects the
	// gateway's credentials. Not user-correctable.
	ErrAuthFailure = errors.New("inference service rejected credentials")

	// ErrDispatchTimeout is returned when the inference service does not
	// respond within the configured timeout. The job is terminal; the
	// gateway never retries on its own.
	ErrDispatchTimeout = errors.New("inference service did not respond in time")
)

// Rate limit scopes. A window exists per user plus one global window
// shared by all users.
const (
	RateScopeUser   = "user"
	RateScopeGlobal = "global"
)

// ValidationError reports a malformed generation parameter.
// Field identifies the offending input so clients can correct it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RateLimitError reports that admission was refused because a rate window
// is at capacity. RetryAfter is the time remaining in the saturated window.
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded, retry in %s", e.Scope, e.RetryAfter.Round(time.Second))
}

// DispatchError reports a non-timeout, non-auth failure from the inference
// collaborator (transport errors, engine-side generation failures).
type DispatchError struct {
	Reason string
	Err    error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("dispatch failed: %s", e.Reason)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError and returns it if so.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsRateLimitError checks if an error is a RateLimitError and returns it if so.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var re *RateLimitError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
