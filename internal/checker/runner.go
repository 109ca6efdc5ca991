package checker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/awbwtools/turn-sentinel/internal/state"
)

// Runner executes one check cycle end to end. A cycle is a short linear
// chain of blocking calls; correctness under overlapping invocations comes
// entirely from the store's conditional write, not in-process locking.
type Runner struct {
	store        state.Store
	fetcher      Fetcher
	parser       Parser
	notifier     Notifier
	fingerprints *Fingerprinter
	publisher    Publisher
	topic        string
	clock        Clock
	logger       *zap.Logger
}

// NewRunner constructs a Runner. publisher may be nil when cycle events are
// not wanted.
func NewRunner(
	store state.Store,
	fetcher Fetcher,
	parser Parser,
	notifier Notifier,
	fingerprints *Fingerprinter,
	publisher Publisher,
	topic string,
	clock Clock,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		store:        store,
		fetcher:      fetcher,
		parser:       parser,
		notifier:     notifier,
		fingerprints: fingerprints,
		publisher:    publisher,
		topic:        topic,
		clock:        clock,
		logger:       logger,
	}
}

// RunCycle performs load -> fetch -> parse -> fingerprint -> [notify] ->
// save. The notify call must complete successfully strictly before the
// state write is issued: a failed delivery leaves the old fingerprint
// authoritative so the same change is retried on the next invocation.
func (r *Runner) RunCycle(ctx context.Context) (Result, error) {
	loaded, generation, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNotFound):
		r.logger.Info("No state record yet, starting from empty state")
		loaded, generation = state.State{}, 0
	case err != nil:
		return Result{}, fmt.Errorf("load state: %w", err)
	}

	fetched, err := r.fetcher.Fetch(ctx, Session(loaded.Session))
	if err != nil {
		return Result{}, err
	}

	snap, err := r.parser.Extract(fetched.Body)
	if err != nil {
		return Result{}, err
	}

	fingerprint, err := r.fingerprints.Compute(snap)
	if err != nil {
		return Result{}, fmt.Errorf("compute fingerprint: %w", err)
	}

	changed := fingerprint != loaded.Fingerprint
	if changed {
		if err := r.notifier.Notify(ctx, snap); err != nil {
			return Result{}, err
		}
		r.logger.Info("Turn change notified",
			zap.Int("count", snap.Count),
			zap.Int("games", len(snap.GameIDs)),
		)
	}

	now := r.clock.Now()
	next := state.State{
		Fingerprint: fingerprint,
		Session:     fetched.Session.Clone(),
		Count:       snap.Count,
		CheckedAt:   now,
	}
	if _, err := r.store.Save(ctx, next, generation); err != nil {
		return Result{}, fmt.Errorf("save state: %w", err)
	}

	result := Result{
		Changed:         changed,
		Notified:        changed,
		Reauthenticated: fetched.Reauthenticated,
		Fingerprint:     fingerprint,
		Count:           snap.Count,
		GameIDs:         snap.GameIDs,
		CheckedAt:       now,
	}
	r.publishEvent(ctx, result)
	return result, nil
}

// publishEvent pushes a completed-cycle event downstream. Publish failures
// are logged, never fatal: events sit outside the cycle's invariants.
func (r *Runner) publishEvent(ctx context.Context, res Result) {
	if r.publisher == nil {
		return
	}
	event := CycleEvent{
		Status:      "succeeded",
		Changed:     res.Changed,
		Notified:    res.Notified,
		Count:       res.Count,
		Fingerprint: res.Fingerprint,
		CheckedAt:   res.CheckedAt,
	}
	if _, err := r.publisher.Publish(ctx, r.topic, event); err != nil {
		r.logger.Warn("Cycle event publish failed", zap.Error(err))
	}
}
