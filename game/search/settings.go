package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/fibtiles/game/engine"
)

// SpawnMode selects how chance nodes treat the tile spawned after a move
type SpawnMode string

const (
	// Expectation weights every empty cell and both spawn values by probability.
	Expectation SpawnMode = "expectation"
	// Sample averages SampleBreadth seeded random spawns.
	Sample SpawnMode = "sample"

	DefaultDepth         = 2
	DefaultSampleBreadth = 4

	// MaxDepth bounds requested search depths.
	MaxDepth = 6
	// DefaultTimeLimit applies to presets that set neither node_limit nor time_limit_ms.
	DefaultTimeLimit = 2 * time.Second
)

var (
	ErrNoLegalMove   = errors.New("no legal move")
	ErrInvalidDepth  = errors.New("invalid search depth")
	ErrUnknownWeight = errors.New("unknown heuristic weight")
	ErrInvalidMode   = errors.New("unknown spawn mode")
)

// Settings control a search. Rules (MergeOnes, SpawnTwoProbability,
// TargetTile) must match the game being searched.
type Settings struct {
	Depth         int
	Spawn         SpawnMode
	SampleBreadth int
	Seed          int64
	MaxSpawnCells int
	NodeLimit     int64
	TimeLimit     time.Duration
	Parallel      bool
	Weights       Weights

	MergeOnes           bool
	SpawnTwoProbability float64
	TargetTile          int

	badWeights []string
}

// Option modifies Settings
type Option func(*Settings)

func WithDepth(depth int) Option {
	return func(s *Settings) { s.Depth = depth }
}

// WithSampling switches chance nodes to seeded sampling
func WithSampling(breadth int, seed int64) Option {
	return func(s *Settings) {
		s.Spawn = Sample
		s.SampleBreadth = breadth
		s.Seed = seed
	}
}

// WithMaxSpawnCells caps how many empty cells an expectation node visits
func WithMaxSpawnCells(n int) Option {
	return func(s *Settings) { s.MaxSpawnCells = n }
}

func WithNodeLimit(n int64) Option {
	return func(s *Settings) { s.NodeLimit = n }
}

func WithTimeLimit(d time.Duration) Option {
	return func(s *Settings) { s.TimeLimit = d }
}

// WithParallel searches the root moves concurrently
func WithParallel(parallel bool) Option {
	return func(s *Settings) { s.Parallel = parallel }
}

func WithWeights(w Weights) Option {
	return func(s *Settings) { s.Weights = w }
}

// WithWeight sets one named weight. Unknown names are reported by New.
func WithWeight(name string, value float64) Option {
	return func(s *Settings) {
		if err := s.Weights.Set(name, value); err != nil {
			s.badWeights = append(s.badWeights, name)
		}
	}
}

// WithRules copies the merge and spawn rules from a game config
func WithRules(config *engine.GameConfig) Option {
	return func(s *Settings) {
		s.MergeOnes = config.MergeOnes
		s.SpawnTwoProbability = config.SpawnTwoProbability
		s.TargetTile = config.TargetTile
	}
}

// DefaultSettings is a depth 2 expectation search with the default weights
func DefaultSettings() Settings {
	return Settings{
		Depth:               DefaultDepth,
		Spawn:               Expectation,
		SampleBreadth:       DefaultSampleBreadth,
		Weights:             DefaultWeights(),
		SpawnTwoProbability: engine.DefaultSpawnTwoPct,
	}
}

// Validate reports settings that cannot be searched
func (s Settings) Validate() error {
	if s.Depth < 1 || s.Depth > MaxDepth {
		return fmt.Errorf("%w: %d is not between 1 and %d", ErrInvalidDepth, s.Depth, MaxDepth)
	}
	if len(s.badWeights) > 0 {
		return fmt.Errorf("%w: %q", ErrUnknownWeight, s.badWeights)
	}
	switch s.Spawn {
	case Expectation:
	case Sample:
		if s.SampleBreadth < 1 {
			return fmt.Errorf("sample breadth must be at least 1, got %d", s.SampleBreadth)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, s.Spawn)
	}
	if s.SpawnTwoProbability < 0 || s.SpawnTwoProbability > 1 {
		return fmt.Errorf("spawn probability must be within [0,1], got %g", s.SpawnTwoProbability)
	}
	if s.MaxSpawnCells < 0 || s.NodeLimit < 0 || s.TimeLimit < 0 {
		return fmt.Errorf("search limits must not be negative")
	}
	return nil
}

// SettingsFromConfig builds settings from a preset's rules and solver block.
// Zero values in the solver block keep the defaults.
func SettingsFromConfig(config *engine.GameConfig) (Settings, error) {
	s := DefaultSettings()
	if config == nil {
		return s, nil
	}
	WithRules(config)(&s)

	solver := config.Solver
	if solver.Depth > 0 {
		s.Depth = solver.Depth
	}
	if solver.Spawn != "" {
		s.Spawn = SpawnMode(solver.Spawn)
	}
	if solver.SampleBreadth > 0 {
		s.SampleBreadth = solver.SampleBreadth
	}
	s.Seed = solver.Seed
	s.MaxSpawnCells = solver.MaxSpawnCells
	s.NodeLimit = solver.NodeLimit
	s.TimeLimit = time.Duration(solver.TimeLimitMS) * time.Millisecond
	if s.NodeLimit == 0 && s.TimeLimit == 0 {
		s.TimeLimit = DefaultTimeLimit
	}
	s.Parallel = solver.Parallel
	for name, value := range solver.Weights {
		if err := s.Weights.Set(name, value); err != nil {
			return s, fmt.Errorf("config %s: %w", config.Name, err)
		}
	}

	return s, s.Validate()
}
