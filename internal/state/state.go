// Package state defines the durable record of the last reported turn state
// and the store contract used to persist it with optimistic concurrency.
package state

import (
	"context"
	"errors"
	"time"
)

// State is the single durable record per monitored player: what was last
// successfully notified and how to authenticate next time.
type State struct {
	Fingerprint string            `json:"fingerprint"`
	Session     map[string]string `json:"session,omitempty"`
	Count       int               `json:"count"`
	CheckedAt   time.Time         `json:"checked_at"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cp := s
	if s.Session != nil {
		cp.Session = make(map[string]string, len(s.Session))
		for k, v := range s.Session {
			cp.Session[k] = v
		}
	}
	return cp
}

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound marks the first-ever run: no record exists yet. Callers
	// treat it as an empty initial state, not a failure.
	ErrNotFound = errors.New("state record not found")

	// ErrVersionConflict means another invocation wrote the record after
	// this one loaded it. The losing cycle aborts cleanly without retry.
	ErrVersionConflict = errors.New("state version conflict")
)

// Store loads and conditionally saves the durable record. The int64 token
// is an opaque generation supplied by the store on Load and required on
// Save; a Save whose token no longer matches fails with ErrVersionConflict.
// Save with token 0 requires that no record exists yet.
type Store interface {
	Load(ctx context.Context) (State, int64, error)
	Save(ctx context.Context, st State, expected int64) (int64, error)
}
