// Package session provides session management for Fibtiles games.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Persistence to JSON files or a SQLite database
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns its own engine.GameEngine and records creation
// and last access times. SessionPersistence is implemented by
// FilePersistence (one JSON file per session) and SQLitePersistence (one
// row per session in a "sessions" table).
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive and custom IDs are limited to letters, digits, '-'
// and '_'.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("data/sessions.db", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//
//	// Create a new session
//	sess, err := manager.Create("", config)
//
//	// Retrieve existing session, loading it from storage if needed
//	sess, err = manager.Get(sessionID)
package session
