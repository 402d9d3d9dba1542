// Package api provides the HTTP REST API for the Fibonacci tile game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "sprint"})
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=&limit=)
//   - GET /api/sessions/unified - Multi-session view (?sessionIds=a,b or ?configName=)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/move - {"direction": "left", "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["up", "left"], "reset": false}
//   - POST /api/sessions/{id}/reset - Start a new game in the session
//   - GET /api/sessions/{id}/history - Paginated history (?page=&limit=&order=asc|desc)
//
// Solver:
//   - GET /api/sessions/{id}/hint - Best move (?depth=&parallel=)
//   - POST /api/sessions/{id}/autoplay - {"steps": 20, "depth": 3}
//
// Configuration:
//   - GET /api/configs - List presets
//   - POST /api/configs - Save a preset
//   - GET /api/configs/{name} - Get a preset
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket updates and moves
//
// Errors are returned as {"error": "..."} with 400 for invalid input, 404 for
// unknown sessions or presets, 409 when the solver is disabled or the game is
// over, and 500 otherwise.
package api
