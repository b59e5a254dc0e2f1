// Package instance implements the in-memory instance store and the source
// poller that keeps it fresh.
package instance

import (
	"sync/atomic"

	"github.com/fleetxds/control-plane/internal/instance/model"
)

// Instance is an opaque key-value unit of upstream data. Templates address
// its fields by dotted path (see internal/matcher).
type Instance = model.Instance

// DefaultScope is visible under every resource-type scope.
const DefaultScope = "default"

// snapshot is the store's immutable published state. A new snapshot is
// built and swapped in wholesale; existing holders of a *snapshot never see
// a partial update.
type snapshot struct {
	generation string
	scopes     map[string][]Instance
}

// Store is the single-writer, many-reader instance store. The poller is
// the only writer; it publishes new generations by atomic reference
// replacement.
type Store struct {
	current atomic.Pointer[snapshot]
}

// NewStore returns an empty Store at generation "".
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&snapshot{scopes: map[string][]Instance{}})
	return s
}

// Generation returns the generation id of the currently published snapshot.
func (s *Store) Generation() string {
	return s.current.Load().generation
}

// Get returns the ordered instance list visible to scope: the scope's own
// instances followed by the universal default-scope instances. The
// returned slice is never mutated in place by the store; callers must not
// mutate it either.
func (s *Store) Get(scope string) []Instance {
	snap := s.current.Load()
	if scope == DefaultScope {
		return snap.scopes[DefaultScope]
	}
	scoped := snap.scopes[scope]
	def := snap.scopes[DefaultScope]
	if len(def) == 0 {
		return scoped
	}
	if len(scoped) == 0 {
		return def
	}
	merged := make([]Instance, 0, len(scoped)+len(def))
	merged = append(merged, scoped...)
	merged = append(merged, def...)
	return merged
}

// Publish atomically replaces the store's contents with a new generation.
// Called only by the poller.
func (s *Store) Publish(generation string, scopes map[string][]Instance) {
	s.current.Store(&snapshot{generation: generation, scopes: scopes})
}
