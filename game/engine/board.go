package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Board is a square grid of tile values indexed [row][col]; 0 marks an empty cell.
type Board [][]int

// NewBoard creates an empty size x size board
func NewBoard(size int) Board {
	b := make(Board, size)
	for i := range b {
		b[i] = make([]int, size)
	}
	return b
}

// BoardFromRows copies rows into a new board. Rows must form a square.
func BoardFromRows(rows [][]int) (Board, error) {
	b := NewBoard(len(rows))
	for r, row := range rows {
		if len(row) != len(rows) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidState, r, len(row), len(rows))
		}
		copy(b[r], row)
	}
	return b, b.Validate()
}

// Size returns the board dimension
func (b Board) Size() int {
	return len(b)
}

// Clone returns a deep copy
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	c := make(Board, len(b))
	for i, row := range b {
		c[i] = append([]int(nil), row...)
	}
	return c
}

// Equal reports whether both boards hold the same values
func (b Board) Equal(o Board) bool {
	if len(b) != len(o) {
		return false
	}
	for r := range b {
		if len(b[r]) != len(o[r]) {
			return false
		}
		for c := range b[r] {
			if b[r][c] != o[r][c] {
				return false
			}
		}
	}
	return true
}

// Cells returns all values in row-major order
func (b Board) Cells() []int {
	return lo.Flatten([][]int(b))
}

// EmptyCells lists empty positions in row-major order
func (b Board) EmptyCells() []Position {
	var out []Position
	for r, row := range b {
		for c, v := range row {
			if v == EmptyCell {
				out = append(out, Position{Row: r, Col: c})
			}
		}
	}
	return out
}

// EmptyCount counts empty cells
func (b Board) EmptyCount() int {
	return lo.Count(b.Cells(), EmptyCell)
}

// TileCount counts occupied cells
func (b Board) TileCount() int {
	return b.Size()*b.Size() - b.EmptyCount()
}

// IsFull reports whether no cell is empty
func (b Board) IsFull() bool {
	return b.EmptyCount() == 0
}

// Contains reports whether value v is on the board
func (b Board) Contains(v int) bool {
	return lo.Contains(b.Cells(), v)
}

// MaxTile returns the largest value and its first position in row-major order
func (b Board) MaxTile() (int, Position) {
	best, pos := 0, Position{}
	for r, row := range b {
		for c, v := range row {
			if v > best {
				best, pos = v, Position{Row: r, Col: c}
			}
		}
	}
	return best, pos
}

// Validate checks squareness and that every tile is a sequence value
func (b Board) Validate() error {
	n := len(b)
	if n < MinBoardSize || n > MaxBoardSize {
		return fmt.Errorf("%w: board size %d outside %d..%d", ErrInvalidState, n, MinBoardSize, MaxBoardSize)
	}
	for r, row := range b {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidState, r, len(row), n)
		}
		for c, v := range row {
			if v != EmptyCell && !IsTileValue(v) {
				return fmt.Errorf("%w: value %d at (%d,%d) is not a tile value", ErrInvalidState, v, r, c)
			}
		}
	}
	return nil
}

// String renders the board as right-aligned columns with '.' for empty cells
func (b Board) String() string {
	maxVal, _ := b.MaxTile()
	width := len(strconv.Itoa(maxVal))
	var sb strings.Builder
	for _, row := range b {
		cells := lo.Map(row, func(v int, _ int) string {
			s := "."
			if v != EmptyCell {
				s = strconv.Itoa(v)
			}
			return strings.Repeat(" ", width-len(s)) + s
		})
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
