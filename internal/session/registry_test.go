package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)

	r.Add("call-1", s)
	if got, ok := r.Lookup("call-1"); !ok || got != s {
		t.Fatalf("lookup after add: %v %v", got, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("len %d, want 1", r.Len())
	}

	removed, ok := r.Remove("call-1")
	if !ok || removed != s {
		t.Fatalf("remove: %v %v", removed, ok)
	}
	if _, ok := r.Lookup("call-1"); ok {
		t.Fatal("session still present after remove")
	}

	// Removing again is a no-op.
	if _, ok := r.Remove("call-1"); ok {
		t.Fatal("second remove returned a session")
	}
	if r.Len() != 0 {
		t.Fatalf("len %d, want 0", r.Len())
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("lookup of unknown id succeeded")
	}
}

func TestRegistryConcurrentKeys(t *testing.T) {
	r := NewRegistry()
	fb := newFakeBackend(t)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("call-%d", i)
			s := newTestSession(t, fb)
			r.Add(id, s)
			if _, ok := r.Lookup(id); !ok {
				t.Errorf("lookup %s failed", id)
			}
			r.Remove(id)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Fatalf("len %d, want 0", r.Len())
	}
}
