package session

import (
	"sync"

	"github.com/relayvoice/bridge/internal/metrics"
)

// Registry is the process-wide map from call-connection identifier to its
// active session. Entries are inserted when a call is provisioned or
// answered, consulted when the media socket attaches, and removed exactly
// once on teardown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add inserts or replaces the session registered under id.
func (r *Registry) Add(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; !exists {
		metrics.SessionsRegistered.Inc()
	}
	r.sessions[id] = s
}

// Lookup returns the session registered under id, if any.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes and returns the session registered under id. The second
// removal of the same id is a no-op.
func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		metrics.SessionsRegistered.Dec()
	}
	return s, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
