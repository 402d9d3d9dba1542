package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Direction is one of the four slide directions
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"

	// Validation constants
	MinBoardSize       = 2
	MaxBoardSize       = 8
	DefaultBoardSize   = 4
	DefaultInitial     = 2
	DefaultSpawnTwoPct = 0.1
	MaxBulkMoves       = 50
	MaxAutoPlaySteps   = 500
	EmptyCell          = 0
)

// Directions lists every direction in tie-break priority order.
var Directions = []Direction{Up, Left, Right, Down}

var (
	ErrInvalidMove  = errors.New("invalid move")
	ErrInvalidState = errors.New("invalid game state")
)

// Valid reports whether d names one of the four directions
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Opposite returns the inverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// ParseDirection accepts the canonical names plus arrow-key and wasd aliases
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w", "arrowup":
		return Up, nil
	case "down", "s", "arrowdown":
		return Down, nil
	case "left", "a", "arrowleft":
		return Left, nil
	case "right", "d", "arrowright":
		return Right, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMove, s)
}

// Status is the lifecycle stage of a game
type Status string

const (
	InProgress Status = "in_progress"
	Won        Status = "won"
	Lost       Status = "lost"
)

// Terminal reports whether no further moves are accepted
func (s Status) Terminal() bool {
	return s == Won || s == Lost
}

// Position represents row,col coordinates
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// GameState represents the complete game state
type GameState struct {
	Board      Board  `json:"board"`
	Score      int    `json:"score"`
	Status     Status `json:"status"`
	MaxTile    int    `json:"max_tile"`
	Message    string `json:"message"`
	ConfigName string `json:"config_name"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action      Direction `json:"action"`
	Changed     bool      `json:"changed"`
	Merges      int       `json:"merges"`
	ScoreGained int       `json:"score_gained"`
	Score       int       `json:"score"`
	Spawned     *Spawn    `json:"spawned,omitempty"`
	Timestamp   int64     `json:"timestamp"`
	MoveNumber  int       `json:"move_number"`
}

// Spawn records a tile placed after a move
type Spawn struct {
	Position
	Value int `json:"value"`
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Board = gs.Board.Clone()
	c.MoveHistory = append([]MoveHistoryEntry(nil), gs.MoveHistory...)
	c.CurrentMoves = append([]MoveHistoryEntry(nil), gs.CurrentMoves...)
	return &c
}
