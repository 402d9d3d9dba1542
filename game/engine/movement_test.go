package engine

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateFromRows(t *testing.T, rows [][]int) *GameState {
	t.Helper()
	b := mustBoard(t, rows)
	maxTile, _ := b.MaxTile()
	return &GameState{Board: b, Status: InProgress, MaxTile: maxTile}
}

func randomBoard(rng RNG, n int, fill float64) Board {
	values := Sequence(6)
	b := NewBoard(n)
	for r := range b {
		for c := range b[r] {
			if rng.Float64() < fill {
				b[r][c] = values[rng.Intn(len(values))]
			}
		}
	}
	return b
}

func TestApplyMove_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		row         []int
		want        []int
		wantChanged bool
		wantScore   int
	}{
		{"seed pair merges", []int{1, 2, 0, 0}, []int{3, 0, 0, 0}, true, 3},
		{"three and five merge", []int{3, 5, 0, 0}, []int{8, 0, 0, 0}, true, 8},
		{"eight and three stay", []int{8, 3, 0, 0}, []int{8, 3, 0, 0}, false, 0},
		{"gap closes", []int{0, 5, 0, 13}, []int{5, 13, 0, 0}, true, 0},
		{"leading pair merges first", []int{1, 2, 3, 0}, []int{3, 3, 0, 0}, true, 3},
		{"merged tile does not chain", []int{1, 2, 5, 0}, []int{3, 5, 0, 0}, true, 3},
		{"two merges in one line", []int{1, 2, 3, 5}, []int{3, 8, 0, 0}, true, 11},
		{"equal values do not merge", []int{2, 2, 0, 0}, []int{2, 2, 0, 0}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateFromRows(t, [][]int{
				tt.row,
				{0, 0, 0, 0},
				{0, 0, 0, 0},
				{0, 0, 0, 0},
			})

			next, changed, err := ApplyMove(state, Left, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, []int(next.Board[0]))
			assert.Equal(t, tt.wantScore, next.Score)
		})
	}
}

func TestSlide_Directions(t *testing.T) {
	b := mustBoard(t, [][]int{
		{1, 2, 3, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	right := Slide(b, Right, false)
	assert.Equal(t, []int{0, 0, 1, 5}, []int(right.Board[0]))
	assert.Equal(t, 5, right.Score)
	assert.Equal(t, 1, right.Merges)

	down := Slide(b, Down, false)
	assert.Equal(t, []int{1, 2, 3, 0}, []int(down.Board[3]))
	assert.True(t, down.Changed)

	up := Slide(b, Up, false)
	assert.False(t, up.Changed)

	col := mustBoard(t, [][]int{
		{3, 0},
		{2, 0},
	})
	assert.Equal(t, []int{5, 0}, []int(Slide(col, Up, false).Board[0]))
}

func TestSlide_DoesNotModifyInput(t *testing.T) {
	b := mustBoard(t, [][]int{{1, 2}, {3, 5}})
	orig := b.Clone()
	Slide(b, Left, false)
	Slide(b, Down, false)
	assert.True(t, b.Equal(orig))
}

func TestSlide_MergeOnes(t *testing.T) {
	b := mustBoard(t, [][]int{{1, 1}, {0, 0}})

	assert.False(t, Slide(b, Left, false).Changed)

	res := Slide(b, Left, true)
	assert.True(t, res.Changed)
	assert.Equal(t, []int{2, 0}, []int(res.Board[0]))
	assert.Equal(t, 2, res.Score)
}

func TestSlide_Properties(t *testing.T) {
	rng := NewSeededRNG(7)
	for i := 0; i < 300; i++ {
		b := randomBoard(rng, 4, 0.7)
		for _, dir := range Directions {
			res := Slide(b, dir, false)

			// Slides conserve the sum of values and every merge removes exactly one tile.
			assert.Equal(t, lo.Sum(b.Cells()), lo.Sum(res.Board.Cells()))
			assert.Equal(t, b.TileCount()-res.Merges, res.Board.TileCount())
			assert.LessOrEqual(t, res.Merges*2, b.TileCount())
			assert.NoError(t, res.Board.Validate())
		}
	}
}

func TestMoveThenInverse_TileCount(t *testing.T) {
	rng := NewSeededRNG(11)
	for i := 0; i < 200; i++ {
		state := &GameState{Board: randomBoard(rng, 4, 0.5), Status: InProgress}
		original := state.Board.TileCount()

		for _, dir := range Directions {
			next, changed, err := ApplyMove(state, dir, nil)
			require.NoError(t, err)
			if changed {
				next = SpawnTile(next, nil, rng)
			}
			back, _, err := ApplyMove(next, dir.Opposite(), nil)
			require.NoError(t, err)
			assert.LessOrEqual(t, back.Board.TileCount(), original+1)
		}
	}
}

func TestApplyMove_Errors(t *testing.T) {
	state := stateFromRows(t, [][]int{{1, 0}, {0, 0}})

	_, _, err := ApplyMove(state, Direction("diagonal"), nil)
	assert.ErrorIs(t, err, ErrInvalidMove)
	assert.Equal(t, 1, state.Board[0][0])

	_, _, err = ApplyMove(nil, Left, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyMove_TerminalState(t *testing.T) {
	state := stateFromRows(t, [][]int{{0, 1}, {0, 2}})
	state.Status = Lost
	state.Score = 42

	next, changed, err := ApplyMove(state, Left, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 42, next.Score)
	assert.Equal(t, Lost, next.Status)
	assert.True(t, next.Board.Equal(state.Board))
}

func TestSpawnTile(t *testing.T) {
	t.Run("places a one by default", func(t *testing.T) {
		config := DefaultGameConfig()
		config.SpawnTwoProbability = 0
		state := stateFromRows(t, [][]int{{0, 0}, {0, 0}})

		next := SpawnTile(state, config, NewSeededRNG(1))
		assert.Equal(t, 1, next.Board.TileCount())
		assert.True(t, next.Board.Contains(1))
		assert.Equal(t, 0, state.Board.TileCount(), "input must not change")
	})

	t.Run("places a two at probability one", func(t *testing.T) {
		config := DefaultGameConfig()
		config.SpawnTwoProbability = 1
		state := stateFromRows(t, [][]int{{0, 0}, {0, 0}})

		next := SpawnTile(state, config, NewSeededRNG(1))
		assert.True(t, next.Board.Contains(2))
	})

	t.Run("full board is a no-op", func(t *testing.T) {
		state := stateFromRows(t, [][]int{{1, 5}, {5, 1}})
		next := SpawnTile(state, nil, NewSeededRNG(1))
		assert.True(t, next.Board.Equal(state.Board))
	})

	t.Run("seeded generators agree", func(t *testing.T) {
		state := stateFromRows(t, [][]int{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
		a := SpawnTile(state, nil, NewSeededRNG(99))
		b := SpawnTile(state, nil, NewSeededRNG(99))
		assert.True(t, a.Board.Equal(b.Board))
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("full board without pairs is lost", func(t *testing.T) {
		state := stateFromRows(t, [][]int{
			{1, 8, 1, 8},
			{8, 1, 8, 1},
			{1, 8, 1, 8},
			{8, 1, 8, 1},
		})
		assert.Equal(t, Lost, Evaluate(state, nil))
	})

	t.Run("full board with a pair is in progress", func(t *testing.T) {
		state := stateFromRows(t, [][]int{
			{1, 8, 1, 8},
			{8, 1, 8, 1},
			{1, 8, 1, 8},
			{8, 1, 2, 1},
		})
		assert.Equal(t, InProgress, Evaluate(state, nil))
	})

	t.Run("target reached wins", func(t *testing.T) {
		config := DefaultGameConfig()
		config.TargetTile = 13
		state := stateFromRows(t, [][]int{{13, 0}, {0, 0}})
		assert.Equal(t, Won, Evaluate(state, config))
	})

	t.Run("win takes precedence over no moves", func(t *testing.T) {
		config := DefaultGameConfig()
		config.TargetTile = 8
		state := stateFromRows(t, [][]int{{1, 8}, {8, 1}})
		assert.Equal(t, Won, Evaluate(state, config))
	})
}

func TestEvaluate_LostIffNoDirectionChanges(t *testing.T) {
	rng := NewSeededRNG(3)
	for i := 0; i < 300; i++ {
		b := randomBoard(rng, 3, 1)
		anyChange := lo.SomeBy(Directions, func(d Direction) bool {
			return Slide(b, d, false).Changed
		})
		assert.Equal(t, !anyChange, EvaluateBoard(b, nil) == Lost, "board:\n%s", b)
	}
}
