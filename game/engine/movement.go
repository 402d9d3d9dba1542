package engine

import (
	"fmt"
	"time"
)

// SlideResult describes the board produced by sliding in one direction
type SlideResult struct {
	Board   Board
	Score   int
	Merges  int
	Changed bool
}

// Slide moves every tile toward dir and merges neighbouring sequence terms.
// The input board is never modified.
func Slide(b Board, dir Direction, mergeOnes bool) SlideResult {
	n := b.Size()
	out := NewBoard(n)
	res := SlideResult{Board: out}
	line := make([]int, 0, n)

	for i := 0; i < n; i++ {
		line = line[:0]
		for k := 0; k < n; k++ {
			r, c := cellAt(n, dir, i, k)
			if v := b[r][c]; v != EmptyCell {
				line = append(line, v)
			}
		}

		merged, score, merges := mergeLine(line, mergeOnes)
		res.Score += score
		res.Merges += merges

		for k, v := range merged {
			r, c := cellAt(n, dir, i, k)
			out[r][c] = v
		}
	}

	res.Changed = !out.Equal(b)
	return res
}

// cellAt maps offset k (0 = leading edge) of line i to board coordinates
func cellAt(n int, dir Direction, i, k int) (int, int) {
	switch dir {
	case Left:
		return i, k
	case Right:
		return i, n - 1 - k
	case Up:
		return k, i
	default:
		return n - 1 - k, i
	}
}

// mergeLine merges a compacted line ordered from the leading edge.
// A merged tile is emitted immediately so it never takes part in a second merge.
func mergeLine(line []int, mergeOnes bool) ([]int, int, int) {
	out := make([]int, 0, len(line))
	score, merges := 0, 0
	for i := 0; i < len(line); i++ {
		if i+1 < len(line) && CanMerge(line[i], line[i+1], mergeOnes) {
			v := line[i] + line[i+1]
			out = append(out, v)
			score += v
			merges++
			i++
			continue
		}
		out = append(out, line[i])
	}
	return out, score, merges
}

// CanSlide reports whether sliding toward dir would change the board
func CanSlide(b Board, dir Direction, mergeOnes bool) bool {
	return Slide(b, dir, mergeOnes).Changed
}

// HasMoves reports whether any direction changes the board
func HasMoves(b Board, mergeOnes bool) bool {
	for _, dir := range Directions {
		if CanSlide(b, dir, mergeOnes) {
			return true
		}
	}
	return false
}

// ApplyMove returns the state that results from sliding toward dir.
// A move that changes nothing, or any move on a finished game, returns an
// unchanged copy with changed == false. No tile is spawned here.
func ApplyMove(state *GameState, dir Direction, config *GameConfig) (*GameState, bool, error) {
	next, res, err := applyMove(state, dir, config)
	if err != nil {
		return nil, false, err
	}
	return next, res.Changed, nil
}

func applyMove(state *GameState, dir Direction, config *GameConfig) (*GameState, SlideResult, error) {
	if state == nil {
		return nil, SlideResult{}, fmt.Errorf("%w: state cannot be nil", ErrInvalidState)
	}
	if !dir.Valid() {
		return nil, SlideResult{}, fmt.Errorf("%w: %q", ErrInvalidMove, dir)
	}
	config = configOrDefault(config)

	next := state.Clone()
	if state.Status.Terminal() {
		return next, SlideResult{Board: next.Board}, nil
	}

	res := Slide(state.Board, dir, config.MergeOnes)
	if !res.Changed {
		return next, res, nil
	}

	next.Board = res.Board
	next.Score += res.Score
	next.MaxTile, _ = next.Board.MaxTile()
	return next, res, nil
}

// SpawnTile returns a copy of state with one new tile in a random empty cell.
// A full board yields an unchanged copy.
func SpawnTile(state *GameState, config *GameConfig, rng RNG) *GameState {
	next := state.Clone()
	spawnTile(next.Board, configOrDefault(config).SpawnTwoProbability, rng)
	next.MaxTile, _ = next.Board.MaxTile()
	return next
}

// spawnTile places a tile in b in place and reports where, or nil if b is full
func spawnTile(b Board, twoProbability float64, rng RNG) *Spawn {
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return nil
	}
	pos := empty[rng.Intn(len(empty))]
	value := 1
	if rng.Float64() < twoProbability {
		value = 2
	}
	b[pos.Row][pos.Col] = value
	return &Spawn{Position: pos, Value: value}
}

// Evaluate reports the status of a state: won when the target tile is present,
// lost when no direction changes the board, otherwise in progress.
func Evaluate(state *GameState, config *GameConfig) Status {
	return EvaluateBoard(state.Board, config)
}

// EvaluateBoard is Evaluate for a bare board
func EvaluateBoard(b Board, config *GameConfig) Status {
	config = configOrDefault(config)
	if config.TargetTile > 0 {
		if maxTile, _ := b.MaxTile(); maxTile >= config.TargetTile {
			return Won
		}
	}
	if HasMoves(b, config.MergeOnes) {
		return InProgress
	}
	return Lost
}

// AddMoveToHistory adds a move to the game's move history
func (gs *GameState) AddMoveToHistory(action Direction, res SlideResult, spawned *Spawn) {
	entry := MoveHistoryEntry{
		Action:      action,
		Changed:     res.Changed,
		Merges:      res.Merges,
		ScoreGained: res.Score,
		Score:       gs.Score,
		Spawned:     spawned,
		Timestamp:   time.Now().Unix(),
		MoveNumber:  gs.TotalMoves + 1,
	}
	// Append to cumulative history (never cleared by reset) and increment total
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++

	// Append to current segment history and increment its counter
	gs.CurrentMoves = append(gs.CurrentMoves, entry)
	gs.CurrentMovesCount++
}
