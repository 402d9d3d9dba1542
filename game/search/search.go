package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/fibtiles/game/engine"
)

// Result is the move chosen by a search
type Result struct {
	Move     engine.Direction             `json:"move"`
	Score    float64                      `json:"score"`
	Depth    int                          `json:"depth"`
	Nodes    int64                        `json:"nodes"`
	Complete bool                         `json:"complete"`
	Scores   map[engine.Direction]float64 `json:"scores"`
}

// errAborted stops an iteration that ran into a node, time or context limit
var errAborted = errors.New("search aborted")

// Searcher runs expectimax over a board snapshot. It never modifies the state
// it is given and may be shared between goroutines.
type Searcher struct {
	settings Settings
}

// New creates a searcher from DefaultSettings modified by opts
func New(opts ...Option) (*Searcher, error) {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return NewWithSettings(s)
}

// NewWithSettings creates a searcher from complete settings
func NewWithSettings(s Settings) (*Searcher, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Searcher{settings: s}, nil
}

// Settings returns a copy of the searcher's settings
func (s *Searcher) Settings() Settings {
	return s.settings
}

// BestMove searches state with the given options. It is a shortcut for New
// followed by Searcher.BestMove.
func BestMove(ctx context.Context, state *engine.GameState, opts ...Option) (*Result, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return s.BestMove(ctx, state)
}

// BestMove returns the highest scoring move for state, breaking ties in
// engine.Directions order. Depths are searched one at a time from 1; when
// ctx, the node limit or the time limit interrupts a deeper pass, the result
// of the last finished pass is returned with Complete set to false. Depth 1
// always runs to completion.
func (s *Searcher) BestMove(ctx context.Context, state *engine.GameState) (*Result, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: state cannot be nil", engine.ErrInvalidState)
	}
	if err := state.Board.Validate(); err != nil {
		return nil, err
	}
	if state.Status.Terminal() {
		return nil, ErrNoLegalMove
	}

	root := state.Board.Clone()
	var moves []engine.Direction
	for _, dir := range engine.Directions {
		if engine.CanSlide(root, dir, s.settings.MergeOnes) {
			moves = append(moves, dir)
		}
	}
	if len(moves) == 0 {
		return nil, ErrNoLegalMove
	}

	logger := zerolog.Ctx(ctx)
	start := time.Now()
	var deadline time.Time
	if s.settings.TimeLimit > 0 {
		deadline = start.Add(s.settings.TimeLimit)
	}

	var nodes atomic.Int64
	var best *Result
	for depth := 1; depth <= s.settings.Depth; depth++ {
		lim := &limits{
			ctx:      ctx,
			deadline: deadline,
			maxNodes: s.settings.NodeLimit,
			nodes:    &nodes,
			enforce:  depth > 1,
		}
		res, err := s.searchRoot(root, moves, depth, lim)
		if errors.Is(err, errAborted) {
			logger.Debug().Int("depth", depth).Int64("nodes", nodes.Load()).Msg("search-interrupted")
			break
		}
		if err != nil {
			return nil, err
		}
		best = res
		logger.Debug().
			Int("depth", depth).
			Str("move", string(res.Move)).
			Float64("score", res.Score).
			Int64("nodes", nodes.Load()).
			Dur("elapsed", time.Since(start)).
			Msg("search-iteration")
	}

	best.Nodes = nodes.Load()
	best.Complete = best.Depth == s.settings.Depth
	return best, nil
}

func (s *Searcher) searchRoot(root engine.Board, moves []engine.Direction, depth int, lim *limits) (*Result, error) {
	values := make([]float64, len(moves))

	branch := func(i int) error {
		w := &walker{
			settings: &s.settings,
			limits:   lim,
			cache:    newTranspositionCache(),
		}
		if s.settings.Spawn == Sample {
			w.rng = engine.NewSeededRNG(branchSeed(s.settings.Seed, i, depth))
		}
		res := engine.Slide(root.Clone(), moves[i], s.settings.MergeOnes)
		values[i] = w.afterMove(res, depth-1)
		if lim.stopped.Load() {
			return errAborted
		}
		return nil
	}

	if s.settings.Parallel {
		g := errgroup.Group{}
		for i := range moves {
			g.Go(func() error { return branch(i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range moves {
			if err := branch(i); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{
		Score:  math.Inf(-1),
		Depth:  depth,
		Scores: make(map[engine.Direction]float64, len(moves)),
	}
	for i, dir := range moves {
		res.Scores[dir] = values[i]
		if values[i] > res.Score {
			res.Move, res.Score = dir, values[i]
		}
	}
	return res, nil
}

// branchSeed derives a distinct stream per root move and depth so that
// sampling gives the same answer serially and in parallel.
func branchSeed(seed int64, branch, depth int) int64 {
	return seed ^ int64(branch+1)*0x4F1BBCDCBFA53E0B ^ int64(depth)<<48
}

type limits struct {
	ctx      context.Context
	deadline time.Time
	maxNodes int64
	nodes    *atomic.Int64
	enforce  bool
	stopped  atomic.Bool
}

// visit counts a node and reports whether the search must stop
func (l *limits) visit() bool {
	n := l.nodes.Add(1)
	if !l.enforce {
		return false
	}
	if l.stopped.Load() {
		return true
	}
	if l.maxNodes > 0 && n > l.maxNodes {
		l.stopped.Store(true)
		return true
	}
	if n%256 == 0 {
		if l.ctx.Err() != nil || (!l.deadline.IsZero() && time.Now().After(l.deadline)) {
			l.stopped.Store(true)
			return true
		}
	}
	return false
}

// walker evaluates one root branch
type walker struct {
	settings *Settings
	limits   *limits
	cache    *transpositionCache
	rng      engine.RNG
}

func (w *walker) won(b engine.Board) bool {
	if w.settings.TargetTile <= 0 {
		return false
	}
	maxTile, _ := b.MaxTile()
	return maxTile >= w.settings.TargetTile
}

func (w *walker) eval(b engine.Board) float64 {
	v := w.settings.Weights.Evaluate(b, w.settings.MergeOnes)
	if w.won(b) {
		v += w.settings.Weights.WinBonus
	}
	return v
}

// afterMove scores a slide: the points it earned plus the chance node that follows
func (w *walker) afterMove(res engine.SlideResult, depth int) float64 {
	return w.settings.Weights.Score*float64(res.Score) + w.chance(res.Board, depth)
}

// chance averages the max node over the spawns that can follow a move
func (w *walker) chance(b engine.Board, depth int) float64 {
	if depth <= 0 || w.won(b) {
		return w.eval(b)
	}
	cells := b.EmptyCells()
	if len(cells) == 0 {
		return w.max(b, depth)
	}

	p := w.settings.SpawnTwoProbability
	if w.settings.Spawn == Sample {
		total := 0.0
		for i := 0; i < w.settings.SampleBreadth; i++ {
			cell := cells[w.rng.Intn(len(cells))]
			value := 1
			if w.rng.Float64() < p {
				value = 2
			}
			b[cell.Row][cell.Col] = value
			total += w.max(b, depth)
			b[cell.Row][cell.Col] = engine.EmptyCell
			if w.limits.stopped.Load() {
				return 0
			}
		}
		return total / float64(w.settings.SampleBreadth)
	}

	cells = strideCells(cells, w.settings.MaxSpawnCells)
	total := 0.0
	for _, cell := range cells {
		for _, spawn := range [2]struct {
			value int
			prob  float64
		}{{1, 1 - p}, {2, p}} {
			if spawn.prob == 0 {
				continue
			}
			b[cell.Row][cell.Col] = spawn.value
			total += spawn.prob * w.max(b, depth)
			b[cell.Row][cell.Col] = engine.EmptyCell
			if w.limits.stopped.Load() {
				return 0
			}
		}
	}
	return total / float64(len(cells))
}

// max returns the best afterMove value over the moves available on b
func (w *walker) max(b engine.Board, depth int) float64 {
	if w.limits.visit() {
		return 0
	}
	key := w.cache.key(b, depth)
	if v, ok := w.cache.get(key); ok {
		return v
	}

	best := math.Inf(-1)
	for _, dir := range engine.Directions {
		res := engine.Slide(b, dir, w.settings.MergeOnes)
		if !res.Changed {
			continue
		}
		if v := w.afterMove(res, depth-1); v > best {
			best = v
		}
		if w.limits.stopped.Load() {
			return 0
		}
	}
	if math.IsInf(best, -1) {
		best = w.eval(b) - w.settings.Weights.LostPenalty
	}

	w.cache.put(key, best)
	return best
}

// strideCells keeps at most limit cells, spread evenly across cells
func strideCells(cells []engine.Position, limit int) []engine.Position {
	if limit <= 0 || len(cells) <= limit {
		return cells
	}
	out := make([]engine.Position, limit)
	for i := range out {
		out[i] = cells[i*len(cells)/limit]
	}
	return out
}
