package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/search"
)

// DefaultAutoPlaySteps is used when AutoPlay is called with steps <= 0
const DefaultAutoPlaySteps = 10

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	// the session manager writes LastAccessedAt under its own lock
	lastAccessed, err := s.sessions.LastAccessed(sess.ID)
	if err != nil {
		lastAccessed = sess.CreatedAt
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID, // Return the config_id, not the display name
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: lastAccessed,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist auto-saves a session; failures are logged, not returned
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msgf("failed to persist session after %s", after)
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					configIDs := lo.Map(availableConfigs, func(c *ConfigInfo, _ int) string { return c.ConfigID })
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("session", sess.ID).Str("config", config.Name).Msg("session created")
	return s.sessionInfo(sess, configName), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, ""), nil
}

// ListSessions returns all active sessions, oldest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return lo.Map(sessions, func(sess *Session, _ int) *SessionInfo {
		return s.sessionInfo(sess, "")
	}), nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return err
	}
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	// Collect events
	events := []GameEvent{}

	// Handle reset if requested
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	before := sess.Engine.GetState().Status
	_, changed, err := sess.Engine.MoveDirection(dir)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.GetState()

	result := &MoveResult{
		Success:       !before.Terminal(),
		Changed:       changed,
		GameState:     state,
		Message:       state.Message,
		Events:        append(events, moveEvents(state, before)...),
		PossibleMoves: possibleMoves(sess.Engine),
	}
	if last := sess.Engine.GetLastMove(); last != nil && !before.Terminal() {
		step := stepFromEntry(1, last, state)
		result.Step = &step
	}

	s.persist(sessionID, "move")
	return result, nil
}

// BulkMove executes multiple moves in sequence
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	// Handle reset
	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}
	result.StartScore = sess.Engine.GetScore()

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	// Execute moves
	for i, move := range moves {
		if status := sess.Engine.GetStatus(); status.Terminal() {
			result.StoppedReason = fmt.Sprintf("game already %s before move %d", status, i+1)
			result.StopReasonCode = string(status)
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := engine.ParseDirection(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d invalid: %q", i+1, move)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		before := sess.Engine.GetStatus()
		if _, _, err := sess.Engine.MoveDirection(dir); err != nil {
			return nil, err
		}
		result.MovesExecuted++

		state := sess.Engine.GetState()
		step := stepFromEntry(i+1, sess.Engine.GetLastMove(), state)
		if !step.Changed {
			result.NoOpMoves++
		}
		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, moveEvents(state, before)...)
	}

	endState := sess.Engine.GetState()
	result.GameState = endState
	result.EndScore = endState.Score
	result.ScoreDelta = endState.Score - result.StartScore
	result.GameOver = endState.Status.Terminal()
	result.Status = string(endState.Status)
	result.Message = endState.Message
	result.PossibleMoves = possibleMoves(sess.Engine)

	// If we ended due to game over without explicit stop reason code
	if result.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = string(endState.Status)
	}

	s.persist(sessionID, "bulk moves")
	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.persist(sessionID, "reset")
	return state, nil
}

// searcherFor builds a searcher from the session's preset with per-call overrides
func searcherFor(config *engine.GameConfig, opts HintOptions) (*search.Searcher, error) {
	if config.Solver.Disabled {
		return nil, ErrSolverDisabled
	}
	settings, err := search.SettingsFromConfig(config)
	if err != nil {
		return nil, err
	}
	if opts.Depth > 0 {
		settings.Depth = opts.Depth
	}
	if opts.Parallel {
		settings.Parallel = true
	}
	return search.NewWithSettings(settings)
}

// Hint runs the solver on a snapshot of the session's board
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string, opts HintOptions) (*HintResult, error) {
	s.mu.RLock()
	sess, err := s.getSession(sessionID)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	config := sess.Config
	snapshot := sess.Engine.GetState().Clone()
	s.mu.RUnlock()

	searcher, err := searcherFor(config, opts)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("session", sessionID).Logger()
	res, err := searcher.BestMove(logger.WithContext(ctx), snapshot)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("move", string(res.Move)).Int("depth", res.Depth).Int64("nodes", res.Nodes).Msg("hint")
	return newHintResult(res), nil
}

// AutoPlay repeatedly asks the solver for a move and applies it. Each search
// runs on a snapshot without holding the service lock; the move is applied only
// if nobody else changed the session in the meantime.
func (s *gameServiceImpl) AutoPlay(ctx context.Context, sessionID string, steps int, opts HintOptions) (*AutoPlayResult, error) {
	s.mu.RLock()
	sess, err := s.getSession(sessionID)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	config := sess.Config
	startScore := sess.Engine.GetScore()
	s.mu.RUnlock()

	searcher, err := searcherFor(config, opts)
	if err != nil {
		return nil, err
	}

	if steps <= 0 {
		steps = DefaultAutoPlaySteps
	}
	if steps > engine.MaxAutoPlaySteps {
		steps = engine.MaxAutoPlaySteps
	}

	logger := log.With().Str("session", sessionID).Logger()
	ctx = logger.WithContext(ctx)

	result := &AutoPlayResult{
		StepsRequested: steps,
		Moves:          []string{},
	}

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			result.StoppedReason = "cancelled"
			break
		}

		// GameEngine replaces its state on every move and reset, so the
		// pointer identifies the position the search started from.
		s.mu.RLock()
		base := sess.Engine.GetState()
		s.mu.RUnlock()
		if base.Status.Terminal() {
			result.StoppedReason = string(base.Status)
			break
		}

		res, err := searcher.BestMove(ctx, base.Clone())
		if errors.Is(err, search.ErrNoLegalMove) {
			result.StoppedReason = "no_legal_move"
			break
		}
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if sess.Engine.GetState() != base {
			s.mu.Unlock()
			result.StoppedReason = "interrupted"
			break
		}
		_, _, err = sess.Engine.MoveDirection(res.Move)
		state := sess.Engine.GetState()
		last := sess.Engine.GetLastMove()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}

		result.StepsPlayed++
		result.Moves = append(result.Moves, string(res.Move))
		result.Steps = append(result.Steps, stepFromEntry(i+1, last, state))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := sess.Engine.GetState()
	if result.StoppedReason == "" && state.Status.Terminal() {
		result.StoppedReason = string(state.Status)
	}
	result.GameState = state
	result.ScoreDelta = state.Score - startScore

	logger.Info().
		Int("steps", result.StepsPlayed).
		Int("score", state.Score).
		Str("stopped", result.StoppedReason).
		Msg("autoplay finished")

	s.persist(sessionID, "autoplay")
	return result, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	// Get the slice of moves
	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// Reverse order (most recent first)
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		// Normal chronological order
		moves = history[start:end]
	}

	// Ensure moves is not nil
	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
	}
}

// moveEvents describes the last move recorded on state
func moveEvents(state *engine.GameState, before engine.Status) []GameEvent {
	if len(state.MoveHistory) == 0 || before.Terminal() {
		return nil
	}
	last := state.MoveHistory[len(state.MoveHistory)-1]
	now := time.Now()

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Slid %s", last.Action),
		Timestamp: now,
	}}
	if last.Merges > 0 {
		events = append(events, GameEvent{
			Type:      "merge",
			Message:   fmt.Sprintf("%d merges for +%d (score %d)", last.Merges, last.ScoreGained, last.Score),
			Timestamp: now,
		})
	}
	if last.Spawned != nil {
		pos := last.Spawned.Position
		events = append(events, GameEvent{
			Type:      "spawn",
			Message:   fmt.Sprintf("New %d at (%d,%d)", last.Spawned.Value, pos.Row, pos.Col),
			Timestamp: now,
			Position:  &pos,
		})
	}
	if state.Status.Terminal() {
		events = append(events, GameEvent{
			Type:      string(state.Status),
			Message:   state.Message,
			Timestamp: now,
		})
	}
	return events
}

func stepFromEntry(idx int, entry *engine.MoveHistoryEntry, state *engine.GameState) StepInfo {
	return StepInfo{
		Idx:         idx,
		Dir:         string(entry.Action),
		Changed:     entry.Changed,
		Merges:      entry.Merges,
		ScoreGained: entry.ScoreGained,
		ScoreAfter:  entry.Score,
		MaxTile:     state.MaxTile,
		Spawned:     entry.Spawned,
		Status:      string(state.Status),
	}
}

func possibleMoves(e *engine.GameEngine) []string {
	return lo.Map(e.GetPossibleMoves(), func(d engine.Direction, _ int) string { return string(d) })
}
