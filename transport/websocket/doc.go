// Package websocket pushes game state to browsers and accepts moves back.
//
// A Hub keeps the clients of each session and runs a single event loop that
// owns the registry. Clients connect with /ws?session=<id>.
//
// Outgoing messages are JSON documents, one per frame:
//
//	{"session_id": "a1b2", "event": "state_update", "game_state": {...}}
//	{"session_id": "a1b2", "event": "error", "data": "invalid move: \"x\""}
//
// Incoming messages name a direction, optionally resetting first:
//
//	{"direction": "left"}
//	{"direction": "up", "reset": true}
//
// Moves are passed to the handler registered with OnMove; the resulting state
// is broadcast to every client of the session and errors are returned to the
// sender only.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.OnMove(func(ctx context.Context, id, dir string, reset bool) (*engine.GameState, error) {
//		res, err := gameService.Move(ctx, id, dir, reset)
//		if err != nil {
//			return nil, err
//		}
//		return res.GameState, nil
//	})
//	go hub.Run(ctx)
package websocket
