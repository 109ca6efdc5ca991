package checker

import (
	"context"
	"time"
)

// Fetcher retrieves the turn-status page using the supplied session,
// re-authenticating at most once when the session has expired.
type Fetcher interface {
	Fetch(ctx context.Context, session Session) (FetchResult, error)
}

// Parser extracts the pending-game snapshot from a fetched page.
type Parser interface {
	Extract(body []byte) (Snapshot, error)
}

// Notifier delivers a human-readable alert for the current snapshot.
type Notifier interface {
	Notify(ctx context.Context, snap Snapshot) error
}

// Publisher pushes completed-cycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for fingerprinting.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
