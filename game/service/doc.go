// Package service provides the business logic layer for the Fibonacci tile game.
//
// The service package implements:
//   - Multi-session game management
//   - Move processing with per-step traces and events
//   - Solver hints and autoplay backed by the search package
//   - Paginated move history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages rule preset loading and validation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP, terminal)
// and the game engine. Each session owns its own engine instance; the service
// serializes access to them and auto-saves after every state change.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		return err
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "left", false)
//	hint, err := gameService.Hint(ctx, info.ID, service.HintOptions{Depth: 3})
package service
