package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/search"
)

func smallConfig() *engine.GameConfig {
	cfg := engine.DefaultGameConfig()
	cfg.BoardSize = 3
	cfg.TargetTile = 13
	cfg.Solver.Depth = 1
	return cfg
}

func TestPlayGame_Solver(t *testing.T) {
	searcher, err := search.New(search.WithDepth(1), search.WithRules(smallConfig()))
	require.NoError(t, err)

	stats, err := playGame(context.Background(), smallConfig(), 3, 500, solverPolicy(searcher))
	require.NoError(t, err)

	assert.True(t, stats.Status.Terminal(), "a 3x3 game ends well within 500 moves")
	assert.Positive(t, stats.Moves)
	assert.Equal(t, int64(3), stats.Seed)

	tiles := 0
	for v, n := range stats.Tiles {
		assert.True(t, engine.IsTileValue(v), "value %d", v)
		tiles += n
	}
	assert.Positive(t, tiles)
	assert.Contains(t, stats.Tiles, stats.MaxTile)
}

func TestPlayGame_Deterministic(t *testing.T) {
	cfg := smallConfig()
	a, err := playGame(context.Background(), cfg, 42, 50, randomPolicy(engine.NewSeededRNG(1)))
	require.NoError(t, err)
	b, err := playGame(context.Background(), cfg, 42, 50, randomPolicy(engine.NewSeededRNG(1)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestPlayGame_MoveCap(t *testing.T) {
	stats, err := playGame(context.Background(), engine.DefaultGameConfig(), 1, 3, randomPolicy(engine.NewSeededRNG(1)))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Moves)
}

func TestPlayGame_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := playGame(ctx, smallConfig(), 1, 10, randomPolicy(engine.NewSeededRNG(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzePreset(t *testing.T) {
	report, err := analyzePreset(context.Background(), "small", smallConfig(), Options{
		Games:    4,
		MaxMoves: 300,
		Seed:     10,
		Workers:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, "solver depth 1", report.Policy)
	require.Len(t, report.Games, 4)
	for i, g := range report.Games {
		assert.Equal(t, int64(10+i), g.Seed, "games keep their order")
	}
}

func TestAnalyzePreset_SolverDisabled(t *testing.T) {
	cfg := smallConfig()
	cfg.Solver.Disabled = true

	report, err := analyzePreset(context.Background(), "purist", cfg, Options{Games: 2, MaxMoves: 100, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, "random", report.Policy)
}

func TestAnalyzePreset_DepthOverride(t *testing.T) {
	report, err := analyzePreset(context.Background(), "small", smallConfig(), Options{Games: 1, MaxMoves: 5, Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, "solver depth 2", report.Policy)
}

func TestSummarize(t *testing.T) {
	report := &Report{
		Preset: "test",
		Config: smallConfig(),
		Games: []GameStats{
			{Score: 10, MaxTile: 8, Moves: 20, Status: engine.Lost, Tiles: map[int]int{8: 1, 1: 2}},
			{Score: 30, MaxTile: 13, Moves: 40, Status: engine.Won, Tiles: map[int]int{13: 1, 1: 1}},
			{Score: 20, MaxTile: 8, Moves: 30, Status: engine.Lost, Tiles: map[int]int{8: 2}},
		},
	}

	s := report.Summarize()
	assert.Equal(t, 3, s.Games)
	assert.InDelta(t, 20.0, s.AvgScore, 1e-9)
	assert.InDelta(t, 30.0, s.AvgMoves, 1e-9)
	assert.Equal(t, 30, s.BestScore)
	assert.Equal(t, 10, s.WorstScore)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, map[int]int{8: 2, 13: 1}, s.MaxTiles)
	assert.Equal(t, map[int]int{1: 3, 8: 3, 13: 1}, s.TileFreq)

	empty := (&Report{}).Summarize()
	assert.Zero(t, empty.Games)
}

func TestPrintReport(t *testing.T) {
	report := &Report{
		Preset: "test",
		Config: smallConfig(),
		Policy: "solver depth 1",
		Games: []GameStats{
			{Score: 30, MaxTile: 13, Moves: 40, Status: engine.Won, Tiles: map[int]int{13: 1}},
			{Score: 10, MaxTile: 8, Moves: 20, Status: engine.Lost, Tiles: map[int]int{8: 1}},
		},
	}

	var out bytes.Buffer
	printReport(&out, report)
	text := out.String()

	assert.Contains(t, text, "=== test (classic) ===")
	assert.Contains(t, text, "Target 13 reached: 1/2 (50%)")
	assert.Contains(t, text, "Score: avg 20.0, best 30, worst 10")
	// largest values first
	assert.Less(t, strings.Index(text, "    13  #"), strings.Index(text, "     8  #"))
}

func TestRun(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out

	err := app.Run(context.Background(), []string{"analyze", "--config-dir", "../../configs", "--games", "2", "--max-moves", "20", "--depth", "1", "classic", "purist"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "=== classic (Classic) ===")
	assert.Contains(t, out.String(), "=== purist (Purist) ===")
	assert.Contains(t, out.String(), "policy: random")
}
