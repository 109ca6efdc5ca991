package checker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awbwtools/turn-sentinel/internal/hash/sha256"
)

func newTestFingerprinter() *Fingerprinter {
	return NewFingerprinter(sha256.New())
}

func TestFingerprinter_Compute_OrderIndependent(t *testing.T) {
	t.Parallel()

	fp := newTestFingerprinter()
	permutations := [][]string{
		{"5", "9", "123"},
		{"9", "5", "123"},
		{"123", "9", "5"},
		{"9", "123", "5"},
		{"5", "123", "9"},
		{"123", "5", "9"},
	}

	want, err := fp.Compute(Snapshot{GameIDs: permutations[0], Count: 3})
	require.NoError(t, err)
	for _, perm := range permutations[1:] {
		got, err := fp.Compute(Snapshot{GameIDs: perm, Count: 3})
		require.NoError(t, err)
		require.Equal(t, want, got, "permutation %v", perm)
	}
}

func TestFingerprinter_Compute_DuplicatesCollapse(t *testing.T) {
	t.Parallel()

	fp := newTestFingerprinter()
	a, err := fp.Compute(Snapshot{GameIDs: []string{"5", "9", "5"}, Count: 2})
	require.NoError(t, err)
	b, err := fp.Compute(Snapshot{GameIDs: []string{"9", "5"}, Count: 2})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestFingerprinter_Compute_MembershipChanges(t *testing.T) {
	t.Parallel()

	fp := newTestFingerprinter()
	// Adversarial pairs: joins and digit splits must not collide.
	cases := []struct {
		name string
		a, b Snapshot
	}{
		{"addition", Snapshot{GameIDs: []string{"5", "9"}}, Snapshot{GameIDs: []string{"5", "9", "12"}}},
		{"removal", Snapshot{GameIDs: []string{"5", "9"}}, Snapshot{GameIDs: []string{"5"}}},
		{"substitution", Snapshot{GameIDs: []string{"10", "20"}}, Snapshot{GameIDs: []string{"10", "30"}}},
		{"digit split", Snapshot{GameIDs: []string{"1", "23"}}, Snapshot{GameIDs: []string{"12", "3"}}},
		{"concatenation", Snapshot{GameIDs: []string{"1", "2"}}, Snapshot{GameIDs: []string{"12"}}},
		{"empty vs one", Snapshot{}, Snapshot{GameIDs: []string{"1"}}},
	}
	for _, tc := range cases {
		a, err := fp.Compute(tc.a)
		require.NoError(t, err)
		b, err := fp.Compute(tc.b)
		require.NoError(t, err)
		require.NotEqual(t, a, b, tc.name)
	}
}

func TestFingerprinter_Compute_CountFallbackWithoutIDs(t *testing.T) {
	t.Parallel()

	fp := newTestFingerprinter()
	// A linkless pending game only shows up in the section count; the
	// count must drive the fingerprint when there are no ids.
	idle, err := fp.Compute(Snapshot{Count: 0})
	require.NoError(t, err)
	waiting, err := fp.Compute(Snapshot{Count: 1})
	require.NoError(t, err)
	require.NotEqual(t, idle, waiting)

	// With ids present the count is ignored.
	a, err := fp.Compute(Snapshot{GameIDs: []string{"5"}, Count: 1})
	require.NoError(t, err)
	b, err := fp.Compute(Snapshot{GameIDs: []string{"5"}, Count: 2})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestSortGameIDs_NumericAware(t *testing.T) {
	t.Parallel()

	ids := []string{"10", "9", "123", "2"}
	SortGameIDs(ids)
	require.Equal(t, []string{"2", "9", "10", "123"}, ids)
}
