package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/fibtiles/game/config"
	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/search"
)

// terminalGame is a single local game driven by line commands
type terminalGame struct {
	engine   *engine.GameEngine
	searcher *search.Searcher // nil when the preset disables the solver
	out      io.Writer
}

func newTerminalGame(cfg *engine.GameConfig, seed int64, out io.Writer) (*terminalGame, error) {
	rng := engine.NewRNG()
	if seed != 0 {
		rng = engine.NewSeededRNG(seed)
	}
	eng, err := engine.NewEngineWithRNG(cfg, rng)
	if err != nil {
		return nil, err
	}

	g := &terminalGame{engine: eng, out: out}
	if !cfg.Solver.Disabled {
		settings, err := search.SettingsFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		if g.searcher, err = search.NewWithSettings(settings); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *terminalGame) render() {
	state := g.engine.GetState()
	fmt.Fprintf(g.out, "\nScore: %d  Max: %d  Status: %s\n", state.Score, state.MaxTile, state.Status)
	fmt.Fprint(g.out, state.Board.String())
	if state.Message != "" {
		fmt.Fprintln(g.out, state.Message)
	}
}

func (g *terminalGame) hint(ctx context.Context) {
	if g.searcher == nil {
		fmt.Fprintln(g.out, "The solver is disabled for this preset.")
		return
	}
	res, err := g.searcher.BestMove(ctx, g.engine.GetState())
	if errors.Is(err, search.ErrNoLegalMove) {
		fmt.Fprintln(g.out, "No move changes the board.")
		return
	}
	if err != nil {
		fmt.Fprintf(g.out, "Hint failed: %v\n", err)
		return
	}
	fmt.Fprintf(g.out, "Hint: %s (value %.1f, depth %d, %d nodes)\n", res.Move, res.Score, res.Depth, res.Nodes)
}

// Run reads commands from in until q, EOF or ctx is done.
func (g *terminalGame) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(g.out, "w/a/s/d or up/left/down/right to move, h for a hint, r to reset, q to quit")
	g.render()

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(g.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch input {
		case "":
			continue
		case "q", "quit", "exit":
			fmt.Fprintf(g.out, "Final score: %d\n", g.engine.GetScore())
			return nil
		case "h", "hint", "?":
			g.hint(ctx)
			continue
		case "r", "reset":
			g.engine.Reset()
			g.render()
			continue
		}

		dir, err := engine.ParseDirection(input)
		if err != nil {
			fmt.Fprintf(g.out, "Unknown command %q\n", input)
			continue
		}
		if g.engine.IsGameOver() {
			fmt.Fprintln(g.out, "The game is over. Press r to play again or q to quit.")
			continue
		}
		if _, _, err := g.engine.MoveDirection(dir); err != nil {
			return err
		}
		g.render()

		if !g.engine.IsGameOver() {
			moves := lo.Map(g.engine.GetPossibleMoves(), func(d engine.Direction, _ int) string { return string(d) })
			log.Debug().Strs("possible", moves).Msg("moves")
		}
	}
}

// runPlay plays one preset in the terminal without starting a server
func runPlay(ctx context.Context, cmd *cli.Command) error {
	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	cfg := configs.GetDefault()
	if preset := cmd.String("preset"); preset != "" {
		if cfg, err = configs.LoadConfig(preset); err != nil {
			return err
		}
	}

	root := cmd.Root()
	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	if root.Reader != nil {
		in = root.Reader
	}
	if root.Writer != nil {
		out = root.Writer
	}

	game, err := newTerminalGame(cfg, cmd.Int64("seed"), out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", cfg.Name, cfg.Description)
	return game.Run(ctx, in)
}
