package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"
	"github.com/wricardo/fibtiles/game/engine"
	"github.com/wricardo/fibtiles/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// autoplay runs several searches per request
			Timeout: 60 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Fibonacci Tiles",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Fibonacci Tiles - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Slide the board so that neighbouring Fibonacci numbers merge (1+2=3, 2+3=5, 3+5=8 ...).
Some presets end the game with a win once a target tile appears; otherwise play until no move changes the board.

AVAILABLE TOOLS:
- create_session: Create a new game session from a preset
- list_sessions / get_session: Inspect sessions
- game_state: Current board, score and status
- move: Single slide (up/down/left/right, wasd also accepted)
- bulk_move: Several slides at once (at most 50)
- reset_game: Start a fresh board in the same session
- move_history: Paginated past moves
- list_configs: Available presets
- hint: Ask the solver for the best next move
- autoplay: Let the solver play several moves
- game_instructions: Full rules

NOTE: The 'intent' parameter on move/bulk_move is for explaining your reasoning; it is not sent to the server.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	directions := lo.Map(engine.Directions, func(d engine.Direction, _ int) string { return string(d) })

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional preset selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset id from list_configs (optional, defaults to the server default)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and status",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Slide every tile in one direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        directions,
					"description": "Direction to slide",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this move",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d slides in sequence; stops early when the game ends or a direction is invalid", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": directions,
					},
					"description": "Array of directions",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind this sequence",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a fresh board in the same session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	// Solver
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Ask the expectimax solver for the best next move without playing it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "Search depth in player moves (optional, preset default otherwise)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleHint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "autoplay",
		Description: fmt.Sprintf("Let the solver play up to %d moves", engine.MaxAutoPlaySteps),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"steps": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Number of moves (default %d)", service.DefaultAutoPlaySteps),
				},
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "Search depth (optional)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAutoPlay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// argInt reads an integer argument; JSON numbers arrive as float64
func argInt(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score, status := 0, "unknown"
		if s.GameState != nil {
			score, status = s.GameState.Score, string(s.GameState.Status)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, Status: %s, Created: %s)\n",
			s.ID, s.ConfigName, score, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)
	reset, _ := args["reset"].(bool)

	body := map[string]interface{}{
		"direction": direction,
		"reset":     reset,
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	reset, _ := args["reset"].(bool)

	var moves []string
	switch raw := args["moves"].(type) {
	case []interface{}:
		moves = lo.FilterMap(raw, func(m interface{}, _ int) (string, bool) {
			s, ok := m.(string)
			return s, ok
		})
	case []string:
		moves = raw
	}
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves must be a non-empty array of directions"), nil
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": reset,
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Game reset successfully\n\n"
	if response.State != nil {
		result += formatGameState(response.State)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	query := url.Values{}
	if page := argInt(args, "page"); page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit := argInt(args, "limit"); limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		target := "none"
		if cfg.TargetTile > 0 {
			target = strconv.Itoa(cfg.TargetTile)
		}
		fmt.Fprintf(&b, "- %s: %s (%dx%d, target %s", cfg.ConfigID, cfg.Description, cfg.BoardSize, cfg.BoardSize, target)
		if cfg.SolverDisabled {
			b.WriteString(", no solver")
		}
		b.WriteString(")\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	path := sessionPath(sessionID, "/hint")
	if depth := argInt(args, "depth"); depth > 0 {
		path += "?depth=" + strconv.Itoa(depth)
	}

	var hint service.HintResult
	if err := c.apiCall(ctx, "GET", path, nil, &hint); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHint(&hint)), nil
}

func (c *Client) handleAutoPlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	body := map[string]int{
		"steps": argInt(args, "steps"),
		"depth": argInt(args, "depth"),
	}
	if body["steps"] < 0 || body["depth"] < 0 {
		return mcp.NewToolResultError("steps and depth must not be negative"), nil
	}

	var result service.AutoPlayResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/autoplay"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAutoPlayResult(&result)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`FIBONACCI TILES - RULES

BOARD
- A square grid (2x2 up to 8x8, 4x4 by default). '.' marks an empty cell.
- Every tile is a Fibonacci number: 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233 ...

MOVES
- up, down, left, right slide every tile as far as it goes in that direction.
  Aliases: w/a/s/d and arrowup/arrowleft/arrowdown/arrowright.
- Two touching tiles merge when they are consecutive Fibonacci numbers:
  1+2=3, 2+3=5, 3+5=8, 5+8=13 ...
- Two 1s only merge when the preset enables merge_ones.
- Merges resolve from the edge you slide toward, and a tile merges at most once per move.
- The value of every merged tile is added to your score.
- After a move that changes the board, a new tile spawns in a random empty cell:
  a 1 usually, sometimes a 2 (the preset sets the chance).
- A move that changes nothing is not an error; the board, score and spawns stay the same.

ENDING
- Won: a preset with a target_tile is won as soon as that tile appears on the board.
- Lost: no direction changes the board.
- A win takes precedence when both are true after the same move.
- Finished games accept no further moves; use reset_game to start again.

SOLVER
- hint searches the game tree (expectimax: your moves maximise, spawns are averaged)
  and reports the best direction together with the value of every legal move.
- autoplay plays solver moves (default %d, at most %d) and stops early when the game ends.
- Some presets disable the solver.

LIMITS
- bulk_move accepts at most %d moves per call; extra moves are ignored and reported as truncated.
`, service.DefaultAutoPlaySteps, engine.MaxAutoPlaySteps, engine.MaxBulkMoves)

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast Accessed: %s\n\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339),
		session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		result += formatGameState(session.GameState)
	}
	return result
}

func formatStatus(status engine.Status) string {
	switch status {
	case engine.Won:
		return "🎉 WON"
	case engine.Lost:
		return "💀 LOST"
	}
	return "In progress"
}

func formatGameState(state *engine.GameState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d\nMax Tile: %d\nStatus: %s\nMoves: %d\n",
		state.Score, state.MaxTile, formatStatus(state.Status), state.CurrentMovesCount)
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}
	if state.Board != nil {
		b.WriteString("\nBoard:\n")
		b.WriteString(state.Board.String())
	}
	return b.String()
}

func formatPossibleMoves(moves []string) string {
	if len(moves) == 0 {
		return "Possible moves: none"
	}
	return "Possible moves: " + strings.Join(moves, ", ")
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	switch {
	case !result.Success:
		b.WriteString("✗ Move rejected: game is already over\n")
	case !result.Changed:
		b.WriteString("• Nothing moved\n")
	default:
		b.WriteString("✓ Move successful\n")
	}
	if step := result.Step; step != nil && step.Changed {
		fmt.Fprintf(&b, "Slid %s: %d merge(s), +%d points", step.Dir, step.Merges, step.ScoreGained)
		if step.Spawned != nil {
			fmt.Fprintf(&b, ", spawned %d at (%d,%d)", step.Spawned.Value, step.Spawned.Row, step.Spawned.Col)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if result.GameState != nil {
		b.WriteString(formatGameState(result.GameState))
	}
	b.WriteString(formatPossibleMoves(result.PossibleMoves))
	b.WriteString("\n")
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bulk move on %s: executed %d/%d moves\n", sessionID, result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "⚠ Request truncated to %d moves\n", result.Limit)
	}
	fmt.Fprintf(&b, "Score: %d → %d (%+d), no-op moves: %d\n",
		result.StartScore, result.EndScore, result.ScoreDelta, result.NoOpMoves)
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s", result.StoppedReason)
		if result.StoppedOnMove > 0 {
			fmt.Fprintf(&b, " (move %d)", result.StoppedOnMove)
		}
		b.WriteString("\n")
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range result.Steps {
			b.WriteString(formatStepLine(step))
		}
	}

	b.WriteString("\n")
	if result.GameState != nil {
		b.WriteString(formatGameState(result.GameState))
	}
	b.WriteString(formatPossibleMoves(result.PossibleMoves))
	b.WriteString("\n")
	return b.String()
}

func formatStepLine(step service.StepInfo) string {
	mark := "✓"
	if !step.Changed {
		mark = "·"
	}
	return fmt.Sprintf("%d. %s %s merges=%d +%d score=%d max=%d\n",
		step.Idx, step.Dir, mark, step.Merges, step.ScoreGained, step.ScoreAfter, step.MaxTile)
}

func formatHint(hint *service.HintResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggested move: %s (value %.1f)\n", hint.Move, hint.Score)
	fmt.Fprintf(&b, "Depth: %d, nodes: %d", hint.Depth, hint.Nodes)
	if !hint.Complete {
		b.WriteString(" (search stopped early at a limit)")
	}
	b.WriteString("\n")

	scored := lo.Filter(engine.Directions, func(d engine.Direction, _ int) bool {
		_, ok := hint.Scores[string(d)]
		return ok
	})
	if len(scored) > 0 {
		b.WriteString("\nMove values:\n")
		for _, d := range scored {
			fmt.Fprintf(&b, "- %s: %.1f\n", d, hint.Scores[string(d)])
		}
	}
	return b.String()
}

func formatAutoPlayResult(result *service.AutoPlayResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Autoplay: played %d/%d moves, %+d points\n", result.StepsPlayed, result.StepsRequested, result.ScoreDelta)
	if len(result.Moves) > 0 {
		fmt.Fprintf(&b, "Moves: %s\n", strings.Join(result.Moves, " "))
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}
	b.WriteString("\n")
	if result.GameState != nil {
		b.WriteString(formatGameState(result.GameState))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d), total moves: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		mark := "✓"
		if !move.Changed {
			mark = "·"
		}
		fmt.Fprintf(&b, "%d. %s %s merges=%d +%d [Score: %d]",
			move.MoveNumber, move.Action, mark, move.Merges, move.ScoreGained, move.Score)
		if move.Spawned != nil {
			fmt.Fprintf(&b, " spawn %d@(%d,%d)", move.Spawned.Value, move.Spawned.Row, move.Spawned.Col)
		}
		b.WriteString("\n")
	}

	return b.String()
}
