// Package search picks moves for the Fibonacci tile game with an expectimax
// search over board snapshots.
//
// Max nodes try every direction that changes the board. Chance nodes either
// take the exact expectation over every empty cell and both spawn values, or
// average a fixed number of spawns drawn from a seeded generator (Sample
// mode), so the same input always produces the same move. Leaves are scored by
// Weights, a linear heuristic over empty cells, row and column monotonicity,
// the largest tile and its distance to a corner, and adjacent mergeable pairs.
//
// Usage:
//
//	res, err := search.BestMove(ctx, state,
//		search.WithDepth(3),
//		search.WithRules(config),
//		search.WithWeight("corner", 2),
//	)
//	if errors.Is(err, search.ErrNoLegalMove) {
//		// game over
//	}
package search
