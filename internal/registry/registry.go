// Package registry implements the Active-Sweep Registry: a process-wide
// set enforcing that at most one family of unrelated sweeps runs at a
// time, while letting a parent sweep spawn related children (a two-axis
// sweep's per-row child runs, a queue's context-switch probes) freely.
package registry

import (
	"fmt"
	"sync"

	"github.com/labstack-instruments/sweepengine/internal/sweep"
)

// errConcurrency builds the typed error TryActivate returns on refusal,
// so callers up through Sweep.Start can type-assert *sweep.ConcurrencyError
// regardless of which layer produced it.
func errConcurrency(s, conflict *sweep.Sweep) error {
	return &sweep.ConcurrencyError{Message: fmt.Sprintf("registry: sweep %s conflicts with active unrelated sweep %s", s.ID(), conflict.ID())}
}

// Registry is a singleton-shaped, mutex-guarded set of active sweeps.
// Tests construct their own instance instead of sharing process state;
// production wiring holds exactly one.
type Registry struct {
	mu     sync.Mutex
	active []*sweep.Sweep
}

// New constructs an empty registry.
func New() *Registry { return &Registry{} }

// TryActivate admits s into the active set if every currently active
// sweep is related to it (ancestor, descendant, or shared ancestor);
// otherwise it refuses with a *sweep.ConcurrencyError so callers can
// present a consistent error regardless of which layer produced it.
func (r *Registry) TryActivate(s *sweep.Sweep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.active {
		if !a.RelatedTo(s) {
			return errConcurrency(s, a)
		}
	}
	r.active = append(r.active, s)
	return nil
}

// Release removes s from the active set. It is a no-op if s was never
// activated or was already released.
func (r *Registry) Release(s *sweep.Sweep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.active {
		if a == s {
			r.active = append(r.active[:i], r.active[i+1:]...)
			return
		}
	}
}

// Active returns a snapshot of the currently active sweep IDs, for
// admin/status surfaces.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.active))
	for i, a := range r.active {
		ids[i] = a.ID()
	}
	return ids
}
