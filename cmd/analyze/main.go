// Command analyze plays the presets in a configs directory against the
// expectimax solver and prints quick, human-readable statistics: score
// spread, win rate, the distribution of the largest tile reached and how
// often each tile value is left on the final boards. Presets that disable
// the solver are played with random legal moves.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/fibtiles/game/config"
	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/search"
	"github.com/wricardo/fibtiles/game/service"
)

// Options control a self-play run
type Options struct {
	Games    int
	MaxMoves int
	Depth    int // 0 keeps the preset's depth
	Seed     int64
	Workers  int
}

// GameStats summarizes one finished (or move-capped) game
type GameStats struct {
	Seed    int64
	Score   int
	MaxTile int
	Moves   int
	Status  engine.Status
	Tiles   map[int]int
}

// Report collects the games played on one preset
type Report struct {
	Preset string
	Config *engine.GameConfig
	Policy string
	Games  []GameStats
}

// policy picks the next direction, or reports search.ErrNoLegalMove
type policy func(ctx context.Context, eng *engine.GameEngine) (engine.Direction, error)

func solverPolicy(searcher *search.Searcher) policy {
	return func(ctx context.Context, eng *engine.GameEngine) (engine.Direction, error) {
		res, err := searcher.BestMove(ctx, eng.GetState())
		if err != nil {
			return "", err
		}
		return res.Move, nil
	}
}

func randomPolicy(rng engine.RNG) policy {
	return func(_ context.Context, eng *engine.GameEngine) (engine.Direction, error) {
		moves := eng.GetPossibleMoves()
		if len(moves) == 0 {
			return "", search.ErrNoLegalMove
		}
		return moves[rng.Intn(len(moves))], nil
	}
}

// playGame plays one seeded game until it ends or maxMoves is reached
func playGame(ctx context.Context, cfg *engine.GameConfig, seed int64, maxMoves int, pick policy) (GameStats, error) {
	eng, err := engine.NewEngineWithRNG(cfg, engine.NewSeededRNG(seed))
	if err != nil {
		return GameStats{}, err
	}

	moves := 0
	for moves < maxMoves && !eng.IsGameOver() {
		if err := ctx.Err(); err != nil {
			return GameStats{}, err
		}
		dir, err := pick(ctx, eng)
		if errors.Is(err, search.ErrNoLegalMove) {
			break
		}
		if err != nil {
			return GameStats{}, err
		}
		if _, _, err := eng.MoveDirection(dir); err != nil {
			return GameStats{}, err
		}
		moves++
	}

	state := eng.GetState()
	return GameStats{
		Seed:    seed,
		Score:   state.Score,
		MaxTile: state.MaxTile,
		Moves:   moves,
		Status:  state.Status,
		Tiles:   engine.TileHistogram(state.Board),
	}, nil
}

// analyzePreset plays opts.Games games of cfg, opts.Workers at a time
func analyzePreset(ctx context.Context, id string, cfg *engine.GameConfig, opts Options) (*Report, error) {
	report := &Report{Preset: id, Config: cfg, Policy: "solver"}

	var searcher *search.Searcher
	if cfg.Solver.Disabled {
		report.Policy = "random"
	} else {
		settings, err := search.SettingsFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		if opts.Depth > 0 {
			settings.Depth = opts.Depth
		}
		if searcher, err = search.NewWithSettings(settings); err != nil {
			return nil, err
		}
		report.Policy = fmt.Sprintf("solver depth %d", settings.Depth)
	}

	report.Games = make([]GameStats, opts.Games)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i := range report.Games {
		seed := opts.Seed + int64(i)
		g.Go(func() error {
			pick := randomPolicy(engine.NewSeededRNG(-seed - 1))
			if searcher != nil {
				pick = solverPolicy(searcher)
			}
			stats, err := playGame(gctx, cfg, seed, opts.MaxMoves, pick)
			if err != nil {
				return fmt.Errorf("%s game %d: %w", id, i+1, err)
			}
			report.Games[i] = stats
			log.Debug().Str("preset", id).Int64("seed", seed).Int("score", stats.Score).
				Int("max_tile", stats.MaxTile).Str("status", string(stats.Status)).Msg("game finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// Summary is the aggregate view of a report
type Summary struct {
	Games      int
	AvgScore   float64
	BestScore  int
	WorstScore int
	AvgMoves   float64
	Wins       int
	MaxTiles   map[int]int // largest tile reached -> games
	TileFreq   map[int]int // tile value -> count over all final boards
}

// Summarize aggregates the games of a report
func (r *Report) Summarize() Summary {
	s := Summary{
		Games:    len(r.Games),
		MaxTiles: make(map[int]int),
		TileFreq: make(map[int]int),
	}
	if s.Games == 0 {
		return s
	}

	s.AvgScore = float64(lo.SumBy(r.Games, func(g GameStats) int { return g.Score })) / float64(s.Games)
	s.AvgMoves = float64(lo.SumBy(r.Games, func(g GameStats) int { return g.Moves })) / float64(s.Games)
	s.BestScore = lo.MaxBy(r.Games, func(a, b GameStats) bool { return a.Score > b.Score }).Score
	s.WorstScore = lo.MinBy(r.Games, func(a, b GameStats) bool { return a.Score < b.Score }).Score
	s.Wins = lo.CountBy(r.Games, func(g GameStats) bool { return g.Status == engine.Won })

	for _, g := range r.Games {
		s.MaxTiles[g.MaxTile]++
		for v, n := range g.Tiles {
			s.TileFreq[v] += n
		}
	}
	return s
}

func sortedKeys(m map[int]int) []int {
	keys := lo.Keys(m)
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	return keys
}

// printReport writes a human-readable report
func printReport(w io.Writer, r *Report) {
	s := r.Summarize()
	cfg := r.Config

	fmt.Fprintf(w, "\n=== %s (%s) ===\n", r.Preset, cfg.Name)
	fmt.Fprintf(w, "Board: %dx%d, merge_ones: %v, policy: %s\n", cfg.BoardSize, cfg.BoardSize, cfg.MergeOnes, r.Policy)
	fmt.Fprintf(w, "Games: %d, avg moves: %.1f\n", s.Games, s.AvgMoves)
	fmt.Fprintf(w, "Score: avg %.1f, best %d, worst %d\n", s.AvgScore, s.BestScore, s.WorstScore)
	if cfg.TargetTile > 0 {
		fmt.Fprintf(w, "Target %d reached: %d/%d (%.0f%%)\n", cfg.TargetTile, s.Wins, s.Games, 100*float64(s.Wins)/float64(max(s.Games, 1)))
	}

	fmt.Fprintln(w, "Largest tile reached:")
	for _, v := range sortedKeys(s.MaxTiles) {
		fmt.Fprintf(w, "  %6d  %s %d\n", v, strings.Repeat("#", s.MaxTiles[v]), s.MaxTiles[v])
	}

	fmt.Fprintln(w, "Tiles on final boards:")
	for _, v := range sortedKeys(s.TileFreq) {
		fmt.Fprintf(w, "  %6d  x%d\n", v, s.TileFreq[v])
	}
}

// presetIDs returns the requested presets, or every preset in the manager
func presetIDs(manager *config.Manager, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		return nil, err
	}
	return lo.Map(infos, func(info *service.ConfigInfo, _ int) string { return info.ConfigID }), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	ids, err := presetIDs(manager, cmd.Args().Slice())
	if err != nil {
		return err
	}

	opts := Options{
		Games:    int(cmd.Int("games")),
		MaxMoves: int(cmd.Int("max-moves")),
		Depth:    int(cmd.Int("depth")),
		Seed:     cmd.Int64("seed"),
		Workers:  int(cmd.Int("workers")),
	}

	var out io.Writer = os.Stdout
	if cmd.Root().Writer != nil {
		out = cmd.Root().Writer
	}

	for _, id := range ids {
		cfg, err := manager.LoadConfig(id)
		if err != nil {
			log.Warn().Err(err).Str("preset", id).Msg("skipping preset")
			continue
		}
		report, err := analyzePreset(ctx, id, cfg, opts)
		if err != nil {
			return err
		}
		printReport(out, report)
	}
	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Self-play statistics for game presets",
		ArgsUsage: "[preset ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.IntFlag{Name: "games", Value: 10, Usage: "Games per preset"},
			&cli.IntFlag{Name: "max-moves", Value: 2000, Usage: "Move cap per game"},
			&cli.IntFlag{Name: "depth", Usage: "Override the preset's solver depth"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Seed of the first game; game i uses seed+i"},
			&cli.IntFlag{Name: "workers", Value: 4, Usage: "Games played concurrently"},
			&cli.BoolFlag{Name: "debug", Usage: "Log every finished game"},
		},
		Action: run,
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("analyze failed")
	}
}
