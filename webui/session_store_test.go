package webui

import (
	"errors"
	"testing"
	"time"
)

func TestSessionStore_CreateAndTouch(t *testing.T) {
	store := NewSessionStore(time.Hour)

	session, err := store.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a session ID")
	}

	touched, err := store.Touch(session.ID)
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if touched.ID != session.ID {
		t.Errorf("expected same session, got %s", touched.ID)
	}
	if touched.LastSeen.Before(session.LastSeen) {
		t.Error("expected LastSeen refreshed")
	}
}

func TestSessionStore_TouchUnknown(t *testing.T) {
	store := NewSessionStore(time.Hour)
	if _, err := store.Touch("no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStore_ExpiredSessionRemoved(t *testing.T) {
	store := NewSessionStore(time.Nanosecond)

	session, err := store.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, err := store.Touch(session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// Removed on the spot; a second touch reports not-found.
	if _, err := store.Touch(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after expiry, got %v", err)
	}
}

func TestSessionStore_Cleanup(t *testing.T) {
	store := NewSessionStore(time.Nanosecond)
	store.Create()
	store.Create()
	time.Sleep(time.Millisecond)

	if removed := store.Cleanup(); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d", store.Count())
	}
}

func TestSessionStore_UniqueIDs(t *testing.T) {
	store := NewSessionStore(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := store.Create()
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[session.ID] {
			t.Fatalf("duplicate session ID %s", session.ID)
		}
		seen[session.ID] = true
	}
}
