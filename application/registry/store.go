// Package registry holds the current set of element descriptors for a page.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"ai_registry/domain/entities"
)

type generation struct {
	byID    map[string]entities.ElementDescriptor
	order   []string
	version uint64
}

// Store owns descriptors. Every replace publishes a new immutable generation, so
// readers see either the previous or the next registry and never a mix of both.
type Store struct {
	current atomic.Pointer[generation]
	// writeMu serializes writers; readers never take it.
	writeMu sync.Mutex
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&generation{byID: map[string]entities.ElementDescriptor{}})
	return s
}

// Replace swaps the whole registry for descriptors. Later entries win on duplicate ids.
func (s *Store) Replace(descriptors []entities.ElementDescriptor) {
	next := &generation{
		byID:  make(map[string]entities.ElementDescriptor, len(descriptors)),
		order: make([]string, 0, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, dup := next.byID[d.TargetID]; !dup {
			next.order = append(next.order, d.TargetID)
		}
		next.byID[d.TargetID] = d.Clone()
	}

	s.writeMu.Lock()
	next.version = s.current.Load().version + 1
	s.current.Store(next)
	s.writeMu.Unlock()
}

// Get returns a copy of the descriptor for targetID.
func (s *Store) Get(targetID string) (entities.ElementDescriptor, bool) {
	d, ok := s.current.Load().byID[targetID]
	if !ok {
		return entities.ElementDescriptor{}, false
	}
	return d.Clone(), true
}

// Has reports whether targetID is registered.
func (s *Store) Has(targetID string) bool {
	_, ok := s.current.Load().byID[targetID]
	return ok
}

// Snapshot returns copies of every descriptor in scan order.
func (s *Store) Snapshot() []entities.ElementDescriptor {
	g := s.current.Load()
	out := make([]entities.ElementDescriptor, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.byID[id].Clone())
	}
	return out
}

// Map returns copies of every descriptor keyed by target id.
func (s *Store) Map() map[string]entities.ElementDescriptor {
	g := s.current.Load()
	out := make(map[string]entities.ElementDescriptor, len(g.byID))
	for id, d := range g.byID {
		out[id] = d.Clone()
	}
	return out
}

// IDs returns the registered target ids sorted lexically.
func (s *Store) IDs() []string {
	g := s.current.Load()
	ids := append([]string(nil), g.order...)
	sort.Strings(ids)
	return ids
}

// Reset clears every entry.
func (s *Store) Reset() {
	s.Replace(nil)
}

func (s *Store) Len() int {
	return len(s.current.Load().order)
}

// Version increases by one on every Replace or Reset.
func (s *Store) Version() uint64 {
	return s.current.Load().version
}
