package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// Corners returns the four corner positions of an n x n board
func Corners(n int) []Position {
	return []Position{
		{Row: 0, Col: 0},
		{Row: 0, Col: n - 1},
		{Row: n - 1, Col: 0},
		{Row: n - 1, Col: n - 1},
	}
}

// CornerDistance returns the distance from pos to the closest corner
func CornerDistance(pos Position, n int) int {
	minDistance := -1
	for _, corner := range Corners(n) {
		distance := ManhattanDistance(pos, corner)
		if minDistance == -1 || distance < minDistance {
			minDistance = distance
		}
	}
	return minDistance
}

// CountMergeablePairs counts orthogonally adjacent tiles that could merge with each other
func CountMergeablePairs(b Board, mergeOnes bool) int {
	count := 0
	n := b.Size()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := b[r][c]
			if v == EmptyCell {
				continue
			}
			if c+1 < n && CanMerge(v, b[r][c+1], mergeOnes) {
				count++
			}
			if r+1 < n && CanMerge(v, b[r+1][c], mergeOnes) {
				count++
			}
		}
	}
	return count
}

// TileHistogram counts how many tiles of each value are on the board
func TileHistogram(b Board) map[int]int {
	hist := make(map[int]int)
	for _, row := range b {
		for _, v := range row {
			if v != EmptyCell {
				hist[v]++
			}
		}
	}
	return hist
}
