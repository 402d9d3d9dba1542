package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/fibtiles/game/engine"
)

func testState(t *testing.T, rows [][]int) *engine.GameState {
	t.Helper()
	b, err := engine.BoardFromRows(rows)
	require.NoError(t, err)
	return &engine.GameState{Board: b, Status: engine.InProgress}
}

func midgameState(t *testing.T) *engine.GameState {
	return testState(t, [][]int{
		{1, 0, 2, 0},
		{3, 5, 0, 1},
		{0, 8, 2, 0},
		{13, 0, 0, 1},
	})
}

func TestBestMove_Deterministic(t *testing.T) {
	ctx := context.Background()
	state := midgameState(t)

	first, err := BestMove(ctx, state, WithDepth(2))
	require.NoError(t, err)
	second, err := BestMove(ctx, state, WithDepth(2))
	require.NoError(t, err)

	assert.Equal(t, first.Move, second.Move)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Scores, second.Scores)
	assert.True(t, first.Complete)
	assert.Equal(t, 2, first.Depth)
	assert.Positive(t, first.Nodes)
}

func TestBestMove_DoesNotModifyState(t *testing.T) {
	state := midgameState(t)
	before := state.Clone()

	_, err := BestMove(context.Background(), state, WithDepth(3))
	require.NoError(t, err)
	assert.Equal(t, before, state)
}

func TestBestMove_NoLegalMove(t *testing.T) {
	state := testState(t, [][]int{
		{1, 8, 1, 8},
		{8, 1, 8, 1},
		{1, 8, 1, 8},
		{8, 1, 8, 1},
	})

	_, err := BestMove(context.Background(), state)
	assert.ErrorIs(t, err, ErrNoLegalMove)

	won := midgameState(t)
	won.Status = engine.Won
	_, err = BestMove(context.Background(), won)
	assert.ErrorIs(t, err, ErrNoLegalMove)
}

func TestBestMove_InvalidInput(t *testing.T) {
	_, err := BestMove(context.Background(), midgameState(t), WithDepth(0))
	assert.ErrorIs(t, err, ErrInvalidDepth)

	_, err = BestMove(context.Background(), midgameState(t), WithDepth(MaxDepth+1))
	assert.ErrorIs(t, err, ErrInvalidDepth)

	_, err = BestMove(context.Background(), nil)
	assert.ErrorIs(t, err, engine.ErrInvalidState)

	_, err = BestMove(context.Background(), midgameState(t), WithWeight("luck", 1))
	assert.ErrorIs(t, err, ErrUnknownWeight)
}

func TestBestMove_OnlyLegalMove(t *testing.T) {
	// Only sliding down changes this board.
	state := testState(t, [][]int{
		{8, 1, 8, 1},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	res, err := BestMove(context.Background(), state, WithDepth(2))
	require.NoError(t, err)
	assert.Equal(t, engine.Down, res.Move)
	assert.Len(t, res.Scores, 1)
}

func TestBestMove_TieBreakPriority(t *testing.T) {
	// A lone tile in the centre of a symmetric board scores the same every way.
	state := testState(t, [][]int{
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	})

	res, err := BestMove(context.Background(), state,
		WithDepth(1),
		WithWeights(Weights{Empty: 1}),
	)
	require.NoError(t, err)
	require.Len(t, res.Scores, 4)
	assert.Equal(t, engine.Up, res.Move)

	// Without up, left is next in line.
	state = testState(t, [][]int{
		{0, 1, 0},
		{0, 0, 0},
		{0, 0, 0},
	})
	res, err = BestMove(context.Background(), state, WithDepth(1), WithWeights(Weights{Empty: 1}))
	require.NoError(t, err)
	assert.Equal(t, engine.Left, res.Move)
}

func TestBestMove_PrefersMerge(t *testing.T) {
	state := testState(t, [][]int{
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{3, 5, 0, 0},
	})

	res, err := BestMove(context.Background(), state, WithDepth(1), WithWeights(Weights{Score: 1}))
	require.NoError(t, err)
	assert.Contains(t, []engine.Direction{engine.Left, engine.Right}, res.Move)
	assert.Equal(t, 8.0, res.Score)
}

func TestBestMove_ParallelMatchesSerial(t *testing.T) {
	ctx := context.Background()
	state := midgameState(t)

	serial, err := BestMove(ctx, state, WithDepth(3))
	require.NoError(t, err)
	parallel, err := BestMove(ctx, state, WithDepth(3), WithParallel(true))
	require.NoError(t, err)

	assert.Equal(t, serial.Move, parallel.Move)
	assert.Equal(t, serial.Scores, parallel.Scores)
	assert.Equal(t, serial.Nodes, parallel.Nodes)
}

func TestBestMove_SampleMode(t *testing.T) {
	ctx := context.Background()
	state := midgameState(t)

	a, err := BestMove(ctx, state, WithDepth(3), WithSampling(4, 17))
	require.NoError(t, err)
	b, err := BestMove(ctx, state, WithDepth(3), WithSampling(4, 17), WithParallel(true))
	require.NoError(t, err)

	assert.Equal(t, a.Move, b.Move)
	assert.Equal(t, a.Scores, b.Scores)

	_, err = BestMove(ctx, state, WithSampling(0, 1))
	assert.Error(t, err)
}

func TestBestMove_MaxSpawnCells(t *testing.T) {
	ctx := context.Background()
	state := midgameState(t)

	full, err := BestMove(ctx, state, WithDepth(3))
	require.NoError(t, err)
	capped, err := BestMove(ctx, state, WithDepth(3), WithMaxSpawnCells(2))
	require.NoError(t, err)

	assert.Less(t, capped.Nodes, full.Nodes)
	assert.True(t, capped.Complete)
}

func TestBestMove_NodeLimit(t *testing.T) {
	res, err := BestMove(context.Background(), midgameState(t), WithDepth(5), WithNodeLimit(50))
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Less(t, res.Depth, 5)
	assert.NotEmpty(t, res.Move)
}

func TestBestMove_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := BestMove(ctx, midgameState(t), WithDepth(5))
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Less(t, res.Depth, 5)
	assert.GreaterOrEqual(t, res.Depth, 1)
}

func TestBestMove_TimeLimit(t *testing.T) {
	start := time.Now()
	res, err := BestMove(context.Background(), midgameState(t), WithDepth(MaxDepth), WithTimeLimit(50*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBestMove_TargetTile(t *testing.T) {
	config := engine.DefaultGameConfig()
	config.TargetTile = 21
	state := testState(t, [][]int{
		{8, 13, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 1},
	})

	res, err := BestMove(context.Background(), state, WithDepth(2), WithRules(config))
	require.NoError(t, err)
	assert.Contains(t, []engine.Direction{engine.Left, engine.Right}, res.Move)
}
