package search

import (
	"fmt"
	"sort"

	"github.com/wricardo/fibtiles/game/engine"
)

// Weights scale each heuristic term. Positive terms reward a board; LostPenalty
// is subtracted from boards with no move left and WinBonus added to boards that
// reached the target tile.
type Weights struct {
	Empty        float64 `json:"empty"`
	Monotonicity float64 `json:"monotonicity"`
	MaxTile      float64 `json:"max_tile"`
	Corner       float64 `json:"corner"`
	Mergeable    float64 `json:"mergeable"`
	Score        float64 `json:"score"`
	LostPenalty  float64 `json:"lost_penalty"`
	WinBonus     float64 `json:"win_bonus"`
}

// DefaultWeights favour open boards with the largest tile held in a corner.
func DefaultWeights() Weights {
	return Weights{
		Empty:        2.7,
		Monotonicity: 1.0,
		MaxTile:      1.0,
		Corner:       1.5,
		Mergeable:    0.7,
		Score:        0.1,
		LostPenalty:  100,
		WinBonus:     1000,
	}
}

func (w *Weights) field(name string) *float64 {
	switch name {
	case "empty":
		return &w.Empty
	case "monotonicity":
		return &w.Monotonicity
	case "max_tile":
		return &w.MaxTile
	case "corner":
		return &w.Corner
	case "mergeable":
		return &w.Mergeable
	case "score":
		return &w.Score
	case "lost_penalty":
		return &w.LostPenalty
	case "win_bonus":
		return &w.WinBonus
	}
	return nil
}

// Set assigns the weight called name
func (w *Weights) Set(name string, value float64) error {
	f := w.field(name)
	if f == nil {
		return fmt.Errorf("%w: %q", ErrUnknownWeight, name)
	}
	*f = value
	return nil
}

// Get returns the weight called name
func (w Weights) Get(name string) (float64, bool) {
	f := w.field(name)
	if f == nil {
		return 0, false
	}
	return *f, true
}

// WeightNames lists the recognised weight names in sorted order
func WeightNames() []string {
	names := []string{"empty", "monotonicity", "max_tile", "corner", "mergeable", "score", "lost_penalty", "win_bonus"}
	sort.Strings(names)
	return names
}

// Evaluate scores a non-terminal board position. Higher is better.
func (w Weights) Evaluate(b engine.Board, mergeOnes bool) float64 {
	maxTile, pos := b.MaxTile()
	if maxTile == 0 {
		return w.Empty * float64(b.EmptyCount())
	}
	rank := float64(engine.TileIndex(maxTile) + 1)

	n := b.Size()
	corner := rank
	if n > 1 {
		corner = rank * float64(n-1-engine.CornerDistance(pos, n)) / float64(n-1)
	}

	return w.Empty*float64(b.EmptyCount()) +
		w.Monotonicity*monotonicity(b) +
		w.MaxTile*rank +
		w.Corner*corner +
		w.Mergeable*float64(engine.CountMergeablePairs(b, mergeOnes))
}

// monotonicity is zero for boards whose rows and columns are all ordered by
// sequence position and grows more negative as lines zig-zag.
func monotonicity(b engine.Board) float64 {
	n := b.Size()
	total := 0.0
	for i := 0; i < n; i++ {
		total += lineMonotonicity(n, func(k int) int { return b[i][k] })
		total += lineMonotonicity(n, func(k int) int { return b[k][i] })
	}
	return total
}

func lineMonotonicity(n int, at func(k int) int) float64 {
	inc, dec := 0, 0
	prev := -1
	for k := 0; k < n; k++ {
		v := at(k)
		if v == engine.EmptyCell {
			continue
		}
		idx := engine.TileIndex(v)
		if prev >= 0 {
			if idx > prev {
				inc += idx - prev
			} else {
				dec += prev - idx
			}
		}
		prev = idx
	}
	return -float64(min(inc, dec))
}
