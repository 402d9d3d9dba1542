package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	IsVictory() bool
	GetScore() int
	GetStatus() Status

	// Movement operations
	Move(direction string) (bool, error)
	CanMove(direction string) bool
	GetPossibleMoves() []Direction

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface for a single session.
// It is not safe for concurrent use.
type GameEngine struct {
	state  *GameState
	config *GameConfig
	rng    RNG
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	return NewEngineWithRNG(config, NewRNG())
}

// NewEngineWithRNG creates an engine whose spawns come from rng
func NewEngineWithRNG(config *GameConfig, rng RNG) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRNG()
	}

	engine := &GameEngine{
		config: config,
		rng:    rng,
	}
	engine.state = InitGameStateFromConfig(config, rng)

	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	engine := &GameEngine{
		config: DefaultGameConfig(),
		rng:    NewRNG(),
	}
	engine.state = InitGameStateFromConfig(engine.config, engine.rng)
	return engine
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := state.Board.Validate(); err != nil {
		return err
	}
	if state.Board.Size() != e.config.BoardSize {
		return fmt.Errorf("%w: board size %d does not match config board_size %d",
			ErrInvalidState, state.Board.Size(), e.config.BoardSize)
	}
	switch state.Status {
	case InProgress, Won, Lost:
	case "":
		state.Status = EvaluateBoard(state.Board, e.config)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, state.Status)
	}
	state.MaxTile, _ = state.Board.MaxTile()
	e.state = state
	return nil
}

// Reset starts a fresh game, keeping cumulative history
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	// Reinitialize core state from config
	e.state = InitGameStateFromConfig(e.config, e.rng)

	// Restore cumulative history and totals; clear only the current segment
	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal
	e.state.CurrentMoves = []MoveHistoryEntry{}
	e.state.CurrentMovesCount = 0

	return e.state
}

// IsGameOver returns whether the game has finished
func (e *GameEngine) IsGameOver() bool {
	return e.state.Status.Terminal()
}

// IsVictory returns whether the target tile was reached
func (e *GameEngine) IsVictory() bool {
	return e.state.Status == Won
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetStatus returns the current status
func (e *GameEngine) GetStatus() Status {
	return e.state.Status
}

// Move slides the board in the given direction and, if anything changed,
// spawns a tile and re-evaluates the status. Invalid directions return
// ErrInvalidMove and leave the state untouched.
func (e *GameEngine) Move(direction string) (bool, error) {
	dir, err := ParseDirection(direction)
	if err != nil {
		return false, err
	}
	_, changed, err := e.MoveDirection(dir)
	return changed, err
}

// MoveDirection is Move for an already-parsed direction; it also returns the slide details.
func (e *GameEngine) MoveDirection(dir Direction) (SlideResult, bool, error) {
	if e.state.Status.Terminal() {
		return SlideResult{Board: e.state.Board}, false, nil
	}

	next, res, err := applyMove(e.state, dir, e.config)
	if err != nil {
		return SlideResult{}, false, err
	}

	var spawned *Spawn
	if res.Changed {
		spawned = spawnTile(next.Board, e.config.SpawnTwoProbability, e.rng)
		next.MaxTile, _ = next.Board.MaxTile()
		next.Status = EvaluateBoard(next.Board, e.config)
	}
	next.Message = e.describe(dir, res, next)
	next.AddMoveToHistory(dir, res, spawned)

	e.state = next
	return res, res.Changed, nil
}

func (e *GameEngine) describe(dir Direction, res SlideResult, state *GameState) string {
	msgs := e.config.Messages
	switch {
	case state.Status == Won && msgs.Victory != "":
		return fmt.Sprintf(msgs.Victory, e.config.TargetTile)
	case state.Status == Lost:
		return fmt.Sprintf(msgs.GameOver, state.Score)
	case !res.Changed:
		return msgs.NoChange
	case res.Merges > 0 && msgs.Merged != "":
		return fmt.Sprintf(msgs.Merged, res.Merges, res.Score)
	case msgs.Slid != "":
		return fmt.Sprintf(msgs.Slid, dir)
	}
	return ""
}

// CanMove checks whether sliding in the given direction would change the board
func (e *GameEngine) CanMove(direction string) bool {
	if e.state.Status.Terminal() {
		return false
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return false
	}
	return CanSlide(e.state.Board, dir, e.config.MergeOnes)
}

// GetPossibleMoves returns every direction that changes the board, in priority order
func (e *GameEngine) GetPossibleMoves() []Direction {
	var possible []Direction
	for _, dir := range Directions {
		if e.CanMove(string(dir)) {
			possible = append(possible, dir)
		}
	}
	return possible
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.state = InitGameStateFromConfig(config, e.rng)
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// BulkMove executes multiple moves in sequence, returning the changed flag for each.
// It stops at the first invalid direction or once the game is over.
func (e *GameEngine) BulkMove(moves []string) ([]bool, error) {
	results := make([]bool, 0, len(moves))

	for _, direction := range moves {
		// Stop if game is over
		if e.IsGameOver() {
			break
		}

		changed, err := e.Move(direction)
		if err != nil {
			return results, err
		}
		results = append(results, changed)
	}

	return results, nil
}
