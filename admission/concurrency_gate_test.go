package admission

import (
	"errors"
	"sync"
	"testing"

	"infernalforge/core"
)

func TestConcurrencyGate_AcquireUpToLimit(t *testing.T) {
	g := NewConcurrencyGate(2)

	p1, err := g.Acquire("alice")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	p2, err := g.Acquire("alice")
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	if _, err := g.Acquire("alice"); !errors.Is(err, core.ErrConcurrencyExceeded) {
		t.Errorf("expected ErrConcurrencyExceeded, got %v", err)
	}

	// Another user is unaffected.
	p3, err := g.Acquire("bob")
	if err != nil {
		t.Errorf("bob should not be gated by alice: %v", err)
	}

	p1.Release()
	p2.Release()
	p3.Release()
}

func TestConcurrencyGate_ReleaseFreesSlot(t *testing.T) {
	g := NewConcurrencyGate(1)

	p, err := g.Acquire("alice")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if _, err := g.Acquire("alice"); err == nil {
		t.Fatal("expected rejection at cap")
	}

	p.Release()
	p2, err := g.Acquire("alice")
	if err != nil {
		t.Errorf("expected acquire after release, got %v", err)
	}
	p2.Release()
}

func TestConcurrencyGate_ReleaseIsIdempotent(t *testing.T) {
	g := NewConcurrencyGate(2)

	p1, _ := g.Acquire("alice")
	g.Acquire("alice")

	// Double release of one permit must free exactly one slot.
	p1.Release()
	p1.Release()
	p1.Release()

	if got := g.InFlight("alice"); got != 1 {
		t.Errorf("expected 1 in flight after double release, got %d", got)
	}
}

func TestConcurrencyGate_InFlightDropsToZero(t *testing.T) {
	g := NewConcurrencyGate(2)
	p1, _ := g.Acquire("alice")
	p2, _ := g.Acquire("alice")
	p1.Release()
	p2.Release()

	if got := g.InFlight("alice"); got != 0 {
		t.Errorf("expected 0 in flight, got %d", got)
	}
}

func TestConcurrencyGate_ConcurrentStorm(t *testing.T) {
	const limit = 2
	g := NewConcurrencyGate(limit)

	var mu sync.Mutex
	inFlight, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := g.Acquire("alice")
			if err != nil {
				return
			}
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			mu.Lock()
			inFlight--
			mu.Unlock()
			p.Release()
		}()
	}
	wg.Wait()

	if peak > limit {
		t.Errorf("in-flight peak %d exceeded limit %d", peak, limit)
	}
	if got := g.InFlight("alice"); got != 0 {
		t.Errorf("expected gate drained, got %d in flight", got)
	}
}
