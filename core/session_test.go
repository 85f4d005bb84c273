package core

import (
	"testing"
	"time"
)

// TestGenerateSessionID tests uniqueness and URL safety.
func TestGenerateSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateSessionID()
		if err != nil {
			t.Fatalf("GenerateSessionID() error = %v", err)
		}
		if len(id) != 43 { // 32 bytes base64 without padding
			t.Errorf("len(id) = %d, want 43", len(id))
		}
		if seen[id] {
			t.Fatal("GenerateSessionID() produced a duplicate")
		}
		seen[id] = true
	}
}

// TestSession_Expiry tests inactivity-based expiry.
func TestSession_Expiry(t *testing.T) {
	s := NewSession("abc")
	if s.ExpiredAfter(time.Hour) {
		t.Error("fresh session reported expired")
	}

	s.LastSeen = time.Now().Add(-2 * time.Hour)
	if !s.ExpiredAfter(time.Hour) {
		t.Error("idle session not reported expired")
	}
}

// TestSession_Touched tests that activity refreshes LastSeen.
func TestSession_Touched(t *testing.T) {
	s := NewSession("abc")
	s.LastSeen = time.Now().Add(-2 * time.Hour)

	touched := s.Touched()
	if touched.ExpiredAfter(time.Hour) {
		t.Error("touched session reported expired")
	}
	if touched.CreatedAt != s.CreatedAt {
		t.Error("Touched() changed CreatedAt")
	}
	// Original is unchanged (value semantics).
	if !s.ExpiredAfter(time.Hour) {
		t.Error("Touched() mutated the receiver")
	}
}
