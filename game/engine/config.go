package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GameConfig represents a rule preset loaded from JSON or YAML
type GameConfig struct {
	Name                string         `json:"name" yaml:"name"`
	Description         string         `json:"description" yaml:"description"`
	BoardSize           int            `json:"board_size" yaml:"board_size"`
	InitialTiles        int            `json:"initial_tiles" yaml:"initial_tiles"`
	SpawnTwoProbability float64        `json:"spawn_two_probability" yaml:"spawn_two_probability"`
	TargetTile          int            `json:"target_tile,omitempty" yaml:"target_tile,omitempty"`
	MergeOnes           bool           `json:"merge_ones,omitempty" yaml:"merge_ones,omitempty"`
	Solver              SolverSettings `json:"solver" yaml:"solver"`
	Messages            Messages       `json:"messages" yaml:"messages"`
}

// Messages are the texts placed in GameState.Message after each event
type Messages struct {
	Welcome  string `json:"welcome" yaml:"welcome"`
	Merged   string `json:"merged" yaml:"merged"`
	Slid     string `json:"slid" yaml:"slid"`
	NoChange string `json:"no_change" yaml:"no_change"`
	Victory  string `json:"victory" yaml:"victory"`
	GameOver string `json:"game_over" yaml:"game_over"`
}

// SolverSettings configure the move search for sessions using this preset.
// Weights are keyed by heuristic name (empty, monotonicity, max_tile, corner,
// mergeable, score, lost_penalty, win_bonus).
type SolverSettings struct {
	Disabled      bool               `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Depth         int                `json:"depth,omitempty" yaml:"depth,omitempty"`
	Spawn         string             `json:"spawn,omitempty" yaml:"spawn,omitempty"`
	SampleBreadth int                `json:"sample_breadth,omitempty" yaml:"sample_breadth,omitempty"`
	Seed          int64              `json:"seed,omitempty" yaml:"seed,omitempty"`
	MaxSpawnCells int                `json:"max_spawn_cells,omitempty" yaml:"max_spawn_cells,omitempty"`
	NodeLimit     int64              `json:"node_limit,omitempty" yaml:"node_limit,omitempty"`
	TimeLimitMS   int                `json:"time_limit_ms,omitempty" yaml:"time_limit_ms,omitempty"`
	Parallel      bool               `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Weights       map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// DefaultGameConfig is the classic 4x4 game with no target tile
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:                "classic",
		Description:         "Classic 4x4 board, play until no moves remain",
		BoardSize:           DefaultBoardSize,
		InitialTiles:        DefaultInitial,
		SpawnTwoProbability: DefaultSpawnTwoPct,
		Solver: SolverSettings{
			Depth: 2,
		},
		Messages: Messages{
			Welcome:  "Slide tiles to merge neighbouring Fibonacci numbers!",
			Merged:   "Merged %d tiles for +%d",
			Slid:     "Tiles slid %s",
			NoChange: "Nothing moved",
			Victory:  "You reached %d!",
			GameOver: "No moves left. Final score: %d",
		},
	}
}

func configOrDefault(config *GameConfig) *GameConfig {
	if config == nil {
		return DefaultGameConfig()
	}
	return config
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config cannot be nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate board
	if config.BoardSize < MinBoardSize || config.BoardSize > MaxBoardSize {
		return fmt.Errorf("config validation: board_size must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, config.BoardSize)
	}
	cells := config.BoardSize * config.BoardSize
	if config.InitialTiles < 1 || config.InitialTiles >= cells {
		return fmt.Errorf("config validation: initial_tiles must be between 1 and %d, got %d", cells-1, config.InitialTiles)
	}

	// Validate spawning
	if config.SpawnTwoProbability < 0 || config.SpawnTwoProbability > 1 {
		return fmt.Errorf("config validation: spawn_two_probability must be within [0,1], got %g", config.SpawnTwoProbability)
	}

	// Validate target
	if config.TargetTile != 0 {
		if !IsTileValue(config.TargetTile) || config.TargetTile <= 2 {
			return fmt.Errorf("config validation: target_tile must be a sequence value above 2, got %d", config.TargetTile)
		}
	}

	// Validate solver
	if config.Solver.Depth < 0 {
		return fmt.Errorf("config validation: solver.depth must not be negative, got %d", config.Solver.Depth)
	}
	switch config.Solver.Spawn {
	case "", "expectation", "sample":
	default:
		return fmt.Errorf("config validation: solver.spawn must be 'expectation' or 'sample', got %q", config.Solver.Spawn)
	}
	if config.Solver.SampleBreadth < 0 || config.Solver.MaxSpawnCells < 0 || config.Solver.NodeLimit < 0 || config.Solver.TimeLimitMS < 0 {
		return fmt.Errorf("config validation: solver limits must not be negative")
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if !strings.Contains(config.Messages.GameOver, "%d") {
		return fmt.Errorf("config validation: messages.game_over must contain %%d for score")
	}
	if config.TargetTile != 0 && !strings.Contains(config.Messages.Victory, "%d") {
		return fmt.Errorf("config validation: messages.victory must contain %%d for the target tile")
	}
	if config.Messages.Merged != "" && strings.Count(config.Messages.Merged, "%d") != 2 {
		return fmt.Errorf("config validation: messages.merged must contain two %%d verbs")
	}

	return nil
}

// DecodeGameConfig parses a preset; format is chosen from ext (".json", ".yaml" or ".yml")
func DecodeGameConfig(data []byte, ext string) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&config); err != nil {
			return nil, err
		}
	}
	return &config, nil
}

// LoadGameConfig loads and validates a preset file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// InitGameStateFromConfig creates a new game with the configured number of seeded tiles
func InitGameStateFromConfig(config *GameConfig, rng RNG) *GameState {
	config = configOrDefault(config)

	board := NewBoard(config.BoardSize)
	for i := 0; i < config.InitialTiles; i++ {
		spawnTile(board, config.SpawnTwoProbability, rng)
	}
	maxTile, _ := board.MaxTile()

	return &GameState{
		Board:             board,
		Score:             0,
		Status:            InProgress,
		MaxTile:           maxTile,
		Message:           config.Messages.Welcome,
		ConfigName:        config.Name,
		MoveHistory:       []MoveHistoryEntry{},
		TotalMoves:        0,
		CurrentMoves:      []MoveHistoryEntry{},
		CurrentMovesCount: 0,
	}
}
