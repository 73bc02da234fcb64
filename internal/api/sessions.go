package api

import (
	"sort"
	"sync"

	"github.com/san-kum/convsim/internal/circuit"
)

// sessions holds the circuit each editor session is working on.
type sessions struct {
	mu       sync.RWMutex
	circuits map[string]*circuit.Circuit
}

func newSessions() *sessions {
	return &sessions{circuits: make(map[string]*circuit.Circuit)}
}

func (s *sessions) put(id string, c *circuit.Circuit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.circuits[id] = c.Snapshot()
}

// get returns a copy, so callers may run or edit it without holding the lock.
func (s *sessions) get(id string) (*circuit.Circuit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.circuits[id]
	if !ok {
		return nil, false
	}
	return c.Snapshot(), true
}

func (s *sessions) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.circuits[id]
	delete(s.circuits, id)
	return ok
}

func (s *sessions) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.circuits))
	for id := range s.circuits {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
