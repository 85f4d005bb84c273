package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// TestRateLimitError_Message tests that the retry hint appears in the message.
func TestRateLimitError_Message(t *testing.T) {
	err := &RateLimitError{Scope: RateScopeUser, RetryAfter: 42 * time.Second}
	if !strings.Contains(err.Error(), "42s") {
		t.Errorf("Error() = %q, want retry duration included", err.Error())
	}
	if !strings.Contains(err.Error(), RateScopeUser) {
		t.Errorf("Error() = %q, want scope included", err.Error())
	}
}

// TestIsRateLimitError tests extraction through wrapping.
func TestIsRateLimitError(t *testing.T) {
	inner := &RateLimitError{Scope: RateScopeGlobal, RetryAfter: time.Second}
	wrapped := fmt.Errorf("admission rejected: %w", inner)

	re, ok := IsRateLimitError(wrapped)
	if !ok {
		t.Fatal("IsRateLimitError() = false, want true")
	}
	if re.Scope != RateScopeGlobal {
		t.Errorf("scope = %q, want global", re.Scope)
	}
	if _, ok := IsRateLimitError(errors.New("other")); ok {
		t.Error("IsRateLimitError() = true for unrelated error")
	}
}

// TestDispatchError_Unwrap tests errors.Is through DispatchError wrapping.
func TestDispatchError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &DispatchError{Reason: "transport", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() = false, want unwrap to cause")
	}
	if !strings.Contains(err.Error(), "transport") {
		t.Errorf("Error() = %q, want reason included", err.Error())
	}

	bare := &DispatchError{Reason: "engine reported failure"}
	if bare.Unwrap() != nil {
		t.Error("Unwrap() != nil for bare DispatchError")
	}
}

// TestSentinels tests that the sentinel errors are distinct.
func TestSentinels(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConcurrencyExceeded, ErrAuthFailure, ErrDispatchTimeout}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}
