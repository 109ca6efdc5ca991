// Package checker implements the turn-check cycle: load persisted state,
// fetch the authenticated turn page, extract the pending games, compare
// fingerprints and alert exactly once per change.
package checker

import "time"

// Session is the opaque credential bag that authenticates requests to the
// target site. The checker never interprets its contents; it only stores
// and replays them.
type Session map[string]string

// Clone returns an independent copy of the session.
func (s Session) Clone() Session {
	if s == nil {
		return nil
	}
	cp := make(Session, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// Snapshot captures one fetch's view of the player's pending games.
// GameIDs holds the deduplicated game identifiers; Count is the sum of the
// page's section counters, which can exceed len(GameIDs) when a game is
// listed without a link.
type Snapshot struct {
	GameIDs []string
	Count   int
}

// FetchResult is returned by a Fetcher. Session is the credential bag that
// actually produced the page, refreshed when a re-login occurred, so the
// caller can persist it even if nothing else changed.
type FetchResult struct {
	Body            []byte
	Session         Session
	Reauthenticated bool
}

// Result summarizes one completed cycle.
type Result struct {
	Changed         bool
	Notified        bool
	Reauthenticated bool
	Fingerprint     string
	Count           int
	GameIDs         []string
	CheckedAt       time.Time
}

// CycleEvent is the payload published downstream after a completed cycle.
type CycleEvent struct {
	Status      string    `json:"status"`
	Changed     bool      `json:"changed"`
	Notified    bool      `json:"notified"`
	Count       int       `json:"count"`
	Fingerprint string    `json:"fingerprint"`
	CheckedAt   time.Time `json:"checked_at"`
}
