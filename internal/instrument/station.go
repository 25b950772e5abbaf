package instrument

import (
	"fmt"
	"sync"
)

// Station is a process-local registry of live Parameter handles, keyed by
// their Identity(). Driver packages register their parameters at startup;
// Resolve looks up a parameter identity, such as one recorded in an
// exported metadata record, against a Station, the way a notebook session resolves
// instrument channel names against its live instrument set.
type Station struct {
	mu         sync.RWMutex
	parameters map[string]*Parameter
}

// NewStation creates an empty Station.
func NewStation() *Station {
	return &Station{parameters: make(map[string]*Parameter)}
}

// Register adds a parameter to the station, keyed by its Identity(). A
// later Register with the same identity replaces the earlier handle —
// useful when a driver reconnects and hands out a fresh Parameter.
func (s *Station) Register(p *Parameter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parameters[p.Identity()] = p
}

// Resolve looks up a parameter by its "<instrument>.<name>" identity.
func (s *Station) Resolve(identity string) (*Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parameters[identity]
	if !ok {
		return nil, fmt.Errorf("station: no parameter registered for %q", identity)
	}
	return p, nil
}

// Parameters returns a snapshot of every registered identity.
func (s *Station) Parameters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.parameters))
	for id := range s.parameters {
		out = append(out, id)
	}
	return out
}
