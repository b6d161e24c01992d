// Package registry provides an in-process guard against duplicate concurrent
// pipeline runs for the same file identifier.
package registry

import "sync"

// Registry is a mutex-guarded set of identifiers currently being processed.
// Each pipeline type (transcription, summarization) owns its own instance.
// State is not persisted; a restart during an in-flight job leaves that
// record in "processing" until manually reconciled.
type Registry struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		running: make(map[string]struct{}),
	}
}

// TryStart atomically records id as running. It returns false if the
// identifier is already running, in which case the caller must not start
// another pipeline for it.
func (r *Registry) TryStart(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.running[id]; ok {
		return false
	}
	r.running[id] = struct{}{}
	return true
}

// Finish removes id from the running set. Removing an absent identifier is
// a no-op, so Finish is safe to defer unconditionally.
func (r *Registry) Finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

// Running returns the number of identifiers currently being processed.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}
