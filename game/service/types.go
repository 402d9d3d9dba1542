package service

import (
	"time"

	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/search"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success       bool              `json:"success"`
	Changed       bool              `json:"changed"`
	GameState     *engine.GameState `json:"game_state"`
	Message       string            `json:"message"`
	Events        []GameEvent       `json:"events,omitempty"`
	Step          *StepInfo         `json:"step,omitempty"`
	PossibleMoves []string          `json:"possible_moves"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // invalid_direction|won|lost
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartScore int `json:"start_score"`
	EndScore   int `json:"end_score"`
	ScoreDelta int `json:"score_delta"`
	NoOpMoves  int `json:"no_op_moves"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	GameOver      bool     `json:"game_over"`
	Status        string   `json:"status"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx         int           `json:"idx"`
	Dir         string        `json:"dir"`
	Changed     bool          `json:"changed"`
	Merges      int           `json:"merges"`
	ScoreGained int           `json:"score_gained"`
	ScoreAfter  int           `json:"score_after"`
	MaxTile     int           `json:"max_tile"`
	Spawned     *engine.Spawn `json:"spawned,omitempty"`
	Status      string        `json:"status"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "move", "merge", "spawn", "won", "lost", "reset"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Position  *engine.Position `json:"position,omitempty"`
}

// HintResult is the solver's recommendation for a session
type HintResult struct {
	Move     string             `json:"move"`
	Score    float64            `json:"score"`
	Depth    int                `json:"depth"`
	Nodes    int64              `json:"nodes"`
	Complete bool               `json:"complete"`
	Scores   map[string]float64 `json:"scores"`
}

// AutoPlayResult summarizes a run of solver-chosen moves
type AutoPlayResult struct {
	StepsRequested int               `json:"steps_requested"`
	StepsPlayed    int               `json:"steps_played"`
	Moves          []string          `json:"moves"`
	ScoreDelta     int               `json:"score_delta"`
	StoppedReason  string            `json:"stopped_reason,omitempty"` // won|lost|no_legal_move|cancelled
	GameState      *engine.GameState `json:"game_state"`
	Steps          []StepInfo        `json:"steps,omitempty"`
}

// HintOptions override the session preset's solver settings for one call.
// Zero values keep the preset's value.
type HintOptions struct {
	Depth    int  `json:"depth,omitempty"`
	Parallel bool `json:"parallel,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename       string `json:"filename"`
	ConfigID       string `json:"config_id"` // The identifier to use for session creation
	Name           string `json:"name"`      // Display name
	Description    string `json:"description"`
	BoardSize      int    `json:"board_size"`
	TargetTile     int    `json:"target_tile"`
	SolverDisabled bool   `json:"solver_disabled"`
}

func newHintResult(res *search.Result) *HintResult {
	scores := make(map[string]float64, len(res.Scores))
	for dir, v := range res.Scores {
		scores[string(dir)] = v
	}
	return &HintResult{
		Move:     string(res.Move),
		Score:    res.Score,
		Depth:    res.Depth,
		Nodes:    res.Nodes,
		Complete: res.Complete,
		Scores:   scores,
	}
}
