package engine

import "math"

// sequence holds the tile values 1, 2, 3, 5, 8, ... up to the largest term that fits an int64.
var sequence = buildSequence()

// sequenceIndex maps a tile value to its position in sequence.
var sequenceIndex = func() map[int]int {
	idx := make(map[int]int, len(sequence))
	for i, v := range sequence {
		idx[v] = i
	}
	return idx
}()

func buildSequence() []int {
	seq := []int{1, 2}
	for {
		a, b := seq[len(seq)-2], seq[len(seq)-1]
		if b > math.MaxInt64-a {
			return seq
		}
		seq = append(seq, a+b)
	}
}

// Sequence returns a copy of the first n tile values (all of them if n <= 0)
func Sequence(n int) []int {
	if n <= 0 || n > len(sequence) {
		n = len(sequence)
	}
	return append([]int(nil), sequence[:n]...)
}

// IsTileValue reports whether v may appear on the board
func IsTileValue(v int) bool {
	_, ok := sequenceIndex[v]
	return ok
}

// TileIndex returns the position of v in the sequence, or -1
func TileIndex(v int) int {
	if i, ok := sequenceIndex[v]; ok {
		return i
	}
	return -1
}

// Consecutive reports whether a and b are neighbouring sequence terms, in either order.
func Consecutive(a, b int) bool {
	ia, ok := sequenceIndex[a]
	if !ok {
		return false
	}
	ib, ok := sequenceIndex[b]
	if !ok {
		return false
	}
	return ia-ib == 1 || ib-ia == 1
}

// CanMerge applies the merge rule; mergeOnes additionally allows 1+1.
func CanMerge(a, b int, mergeOnes bool) bool {
	if mergeOnes && a == 1 && b == 1 {
		return true
	}
	return Consecutive(a, b)
}
