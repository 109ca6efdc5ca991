package checker

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Fingerprinter reduces a snapshot to a deterministic, order-independent
// digest. Two snapshots with identical game-id membership always produce
// the same fingerprint regardless of extraction order.
type Fingerprinter struct {
	hasher Hasher
}

// NewFingerprinter constructs a Fingerprinter over the given hasher.
func NewFingerprinter(hasher Hasher) *Fingerprinter {
	return &Fingerprinter{hasher: hasher}
}

// Compute returns the fingerprint for the snapshot.
func (f *Fingerprinter) Compute(snap Snapshot) (string, error) {
	digest, err := f.hasher.Hash([]byte(canonical(snap)))
	if err != nil {
		return "", fmt.Errorf("hash snapshot: %w", err)
	}
	return digest, nil
}

// canonical builds the digest input: the sorted, deduplicated game ids
// joined with commas. A snapshot with no ids falls back to the section
// count so that a linkless pending game still registers as a change.
func canonical(snap Snapshot) string {
	if len(snap.GameIDs) == 0 {
		return fmt.Sprintf("count:%d", snap.Count)
	}
	ids := slices.Clone(snap.GameIDs)
	SortGameIDs(ids)
	ids = slices.Compact(ids)
	return strings.Join(ids, ",")
}

// SortGameIDs orders ids numerically when both compare as integers and
// lexicographically otherwise, so "9" sorts before "10".
func SortGameIDs(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		na, errA := strconv.ParseUint(a, 10, 64)
		nb, errB := strconv.ParseUint(b, 10, 64)
		if errA == nil && errB == nil {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
		return strings.Compare(a, b)
	})
}
