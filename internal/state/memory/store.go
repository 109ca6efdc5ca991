// Package memory holds the state record in-process for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/awbwtools/turn-sentinel/internal/state"
)

// Store is an in-memory state.Store with generation-based conditional writes.
type Store struct {
	mu         sync.Mutex
	record     state.State
	generation int64
	exists     bool
}

// New creates an empty Store; the first Load returns state.ErrNotFound.
func New() *Store {
	return &Store{}
}

// Load returns the stored record and its generation.
func (s *Store) Load(_ context.Context) (state.State, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return state.State{}, 0, state.ErrNotFound
	}
	return s.record.Clone(), s.generation, nil
}

// Save replaces the record when expected matches the current generation
// (0 meaning "no record yet") and returns the new generation.
func (s *Store) Save(_ context.Context, st state.State, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := int64(0)
	if s.exists {
		current = s.generation
	}
	if expected != current {
		return 0, state.ErrVersionConflict
	}
	s.record = st.Clone()
	s.generation++
	s.exists = true
	return s.generation, nil
}

// Seed installs a record directly, bypassing the conditional check. Test
// helper only.
func (s *Store) Seed(st state.State, generation int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = st.Clone()
	s.generation = generation
	s.exists = true
}
