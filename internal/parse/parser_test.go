package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awbwtools/turn-sentinel/internal/checker"
)

func TestParser_Extract_FindsCountAndIDs(t *testing.T) {
	t.Parallel()

	html := `
	<body>
		<h1>Your Turn Games (2)</h1>
		<a href="game.php?games_id=123">Game</a>
		<a href="game.php?games_id=456">Game</a>
		<a href="game.php?games_id=123">Duplicate</a>
	</body>
	`

	snap, err := New().Extract([]byte(html))
	require.NoError(t, err)
	require.Equal(t, 2, snap.Count)
	require.Equal(t, []string{"123", "456"}, snap.GameIDs)
}

func TestParser_Extract_AddsWaitingToStartCount(t *testing.T) {
	t.Parallel()

	html := `
	<body>
		<h1>Your Games Waiting to Start (1)</h1>
		<table>Game 1</table>

		<h1>Your Turn Games (2)</h1>
		<a href="game.php?games_id=111">Game</a>
		<a href="game.php?games_id=222">Game</a>
		<a href="game.php?games_id=111">Duplicate</a>
	</body>
	`

	snap, err := New().Extract([]byte(html))
	require.NoError(t, err)
	require.Equal(t, 3, snap.Count)
	require.Equal(t, []string{"111", "222"}, snap.GameIDs)
}

func TestParser_Extract_SortsIDsNumerically(t *testing.T) {
	t.Parallel()

	html := `
	<body>
		<h1>Your Turn Games (3)</h1>
		<a href="game.php?games_id=10">Game</a>
		<a href="game.php?games_id=9">Game</a>
		<a href="game.php?games_id=123">Game</a>
	</body>
	`

	snap, err := New().Extract([]byte(html))
	require.NoError(t, err)
	require.Equal(t, []string{"9", "10", "123"}, snap.GameIDs)
}

func TestParser_Extract_EmptySectionsYieldEmptySnapshot(t *testing.T) {
	t.Parallel()

	html := `<body><h1>Your Turn Games (0)</h1><p>No games.</p></body>`

	snap, err := New().Extract([]byte(html))
	require.NoError(t, err)
	require.Zero(t, snap.Count)
	require.Empty(t, snap.GameIDs)
}

func TestParser_Extract_MissingAnchorFails(t *testing.T) {
	t.Parallel()

	html := `<body><h1>Maintenance</h1><p>Back soon.</p></body>`

	_, err := New().Extract([]byte(html))
	require.ErrorIs(t, err, checker.ErrParseFailed)
}

func TestParser_Extract_IgnoresUnrelatedLinks(t *testing.T) {
	t.Parallel()

	html := `
	<body>
		<h1>Your Turn Games (1)</h1>
		<a href="profile.php?users_id=77">Profile</a>
		<a href="game.php?games_id=42">Game</a>
	</body>
	`

	snap, err := New().Extract([]byte(html))
	require.NoError(t, err)
	require.Equal(t, []string{"42"}, snap.GameIDs)
}
