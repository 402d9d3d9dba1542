// Package mcp exposes Fibonacci Tiles to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the REST
// API served by package api, and the JSON answer is rendered as plain text
// (the board via engine.Board.String, followed by score, status and the
// directions that would change the board).
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, move, bulk_move, reset_game, move_history
//   - list_configs, game_instructions
//   - hint, autoplay (expectimax solver)
//
// API errors are returned as tool errors, never as Go errors, so the agent
// sees the server's message.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
